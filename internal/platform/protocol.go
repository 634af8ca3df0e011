package platform

import "context"

// Adapter defines the narrow contract for sending a prompt to one external
// chat-AI platform. Implementations must enforce their own timeouts; the
// orchestrator calling Send has none of its own.
type Adapter interface {
	// Send delivers a prompt to the platform and returns its response.
	// Safe to call repeatedly; a non-nil error means no usable response.
	Send(ctx context.Context, prompt string) (*Response, error)
}

// Response is a successful platform reply
type Response struct {
	Platform string `json:"platform"`
	Text     string `json:"text"`
	Model    string `json:"model,omitempty"`
}
