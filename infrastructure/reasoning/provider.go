// Package reasoning provides the Reasoning Port: a structured prompt goes
// in, a structured completion comes out. Providers adapt concrete LLM
// services; the pipelines depend only on the Provider interface and treat
// every completion as untrusted input to be parsed and validated.
package reasoning

import (
	"context"
)

// Provider is the reasoning engine abstraction consumed by the planners
// and the analyzer.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req Request) (Response, error)

	// Name returns the provider name for logging.
	Name() string
}

// Request is a structured completion request.
type Request struct {
	// System is the system prompt framing the task.
	System string

	// Prompt is the user-visible task prompt.
	Prompt string

	// Temperature steers sampling; planning steps use 0 for determinism.
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int
}

// Response is a structured completion response.
type Response struct {
	// Text is the raw completion text. Callers must parse and validate
	// it; it is never assumed well-formed.
	Text string

	// Model records which model produced the completion.
	Model string

	// PromptTokens / CompletionTokens record usage when reported.
	PromptTokens     int
	CompletionTokens int
}

// Config contains common provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int // seconds
}
