package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAdapterSend(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream bool `json:"stream"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4",
			"message": map[string]string{
				"role":    "assistant",
				"content": "Use structured error types.",
			},
		})
	}))
	defer server.Close()

	adapter := NewHTTPAdapter("gpt", server.URL, "sk-test", "gpt-4", 5*time.Second)
	resp, err := adapter.Send(context.Background(), "How should I handle errors?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if resp.Platform != "gpt" {
		t.Errorf("expected platform gpt, got %s", resp.Platform)
	}
	if resp.Text != "Use structured error types." {
		t.Errorf("unexpected response text: %q", resp.Text)
	}
	if resp.Model != "gpt-4" {
		t.Errorf("expected model echoed back, got %s", resp.Model)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody.Stream {
		t.Error("stream should be false")
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" {
		t.Errorf("expected single user message, got %+v", gotBody.Messages)
	}
}

func TestHTTPAdapterEmptyPrompt(t *testing.T) {
	adapter := NewHTTPAdapter("gpt", "http://localhost:1", "", "", time.Second)
	if _, err := adapter.Send(context.Background(), "   "); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestHTTPAdapterNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter("gpt", server.URL, "", "", time.Second)
	if _, err := adapter.Send(context.Background(), "hello there"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestHTTPAdapterEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "  "},
		})
	}))
	defer server.Close()

	adapter := NewHTTPAdapter("gpt", server.URL, "", "", time.Second)
	if _, err := adapter.Send(context.Background(), "hello there"); err == nil {
		t.Error("expected error for empty assistant content")
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("gpt", NewMockAdapter("gpt"))
	registry.Register("claude", NewMockAdapter("claude"))

	if !registry.Has("gpt") {
		t.Error("expected gpt registered")
	}
	if registry.Has("grok") {
		t.Error("grok should not be registered")
	}

	list := registry.List()
	if len(list) != 2 || list[0] != "claude" || list[1] != "gpt" {
		t.Errorf("expected sorted platform list, got %v", list)
	}

	resp, err := registry.Send(context.Background(), "gpt", "ping")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp.Platform != "gpt" {
		t.Errorf("unexpected platform %s", resp.Platform)
	}

	if _, err := registry.Send(context.Background(), "grok", "ping"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestMockAdapterScripting(t *testing.T) {
	mock := NewMockAdapter("gpt").Respond("first", "second")

	resp, _ := mock.Send(context.Background(), "a")
	if resp.Text != "first" {
		t.Errorf("expected first response, got %q", resp.Text)
	}
	resp, _ = mock.Send(context.Background(), "b")
	if resp.Text != "second" {
		t.Errorf("expected second response, got %q", resp.Text)
	}
	// last response repeats once exhausted
	resp, _ = mock.Send(context.Background(), "c")
	if resp.Text != "second" {
		t.Errorf("expected repeated last response, got %q", resp.Text)
	}

	if mock.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.Calls())
	}
	prompts := mock.Prompts()
	if len(prompts) != 3 || prompts[0] != "a" {
		t.Errorf("unexpected prompts %v", prompts)
	}
}
