package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAdapter sends prompts to a chat-completion style JSON endpoint.
// It is the production stand-in for the browser-driven adapters the
// orchestration core treats as external collaborators.
type HTTPAdapter struct {
	platform string
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPAdapter creates an adapter for one platform endpoint.
// The client-side timeout is the only timeout in the send path.
func NewHTTPAdapter(platform, endpoint, apiKey, model string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPAdapter{
		platform: platform,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send posts the prompt as a single-message chat request and returns the
// assistant's reply.
func (a *HTTPAdapter) Send(ctx context.Context, prompt string) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	chatReq := struct {
		Model    string `json:"model,omitempty"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream bool `json:"stream"`
	}{
		Model:  a.model,
		Stream: false,
	}
	chatReq.Messages = append(chatReq.Messages, struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{Role: "user", Content: prompt})

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp struct {
		Model   string `json:"model"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if strings.TrimSpace(chatResp.Message.Content) == "" {
		return nil, fmt.Errorf("empty response from platform %s", a.platform)
	}

	return &Response{
		Platform: a.platform,
		Text:     chatResp.Message.Content,
		Model:    chatResp.Model,
	}, nil
}
