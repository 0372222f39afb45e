// Package engine defines the contract with the external language-analysis
// service. Callers depend on the Client interface, never on a vendor SDK.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrNoContent is returned when the engine answers without any content.
	// Always classified retryable by the queue's retry policy.
	ErrNoContent = errors.New("no content received from analysis engine")
	// ErrUnavailable is returned when the engine cannot be reached.
	ErrUnavailable = errors.New("analysis engine unavailable")
)

// CompletionRequest is one rendered prompt sent to the engine. The
// orchestrator always requests a JSON object response.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Usage is the token accounting reported by the engine for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionResponse carries the raw JSON text and token usage.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Client is the analysis engine interface. Implementations must be safe for
// concurrent use and must bound their own network wait via ctx.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Model() string
}
