package platform

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter is a scriptable in-memory adapter used in tests and demos.
// Responses and errors are keyed by platform; unknown platforms echo the
// prompt back.
type MockAdapter struct {
	platform string

	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

// NewMockAdapter creates a mock adapter for the given platform id
func NewMockAdapter(platform string) *MockAdapter {
	return &MockAdapter{platform: platform}
}

// Respond queues canned responses returned by subsequent Send calls.
// When the queue is exhausted the last response repeats.
func (m *MockAdapter) Respond(responses ...string) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
	return m
}

// Fail makes every subsequent Send return the given error
func (m *MockAdapter) Fail(err error) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Calls returns how many times Send was invoked
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts seen so far, in order
func (m *MockAdapter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Send implements Adapter
func (m *MockAdapter) Send(ctx context.Context, prompt string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.prompts = append(m.prompts, prompt)

	if m.err != nil {
		return nil, m.err
	}

	text := fmt.Sprintf("%s echo: %s", m.platform, prompt)
	if len(m.responses) > 0 {
		text = m.responses[0]
		if len(m.responses) > 1 {
			m.responses = m.responses[1:]
		}
	}

	return &Response{Platform: m.platform, Text: text}, nil
}
