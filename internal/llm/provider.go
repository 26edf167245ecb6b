// Package llm abstracts the text generation backend behind a fixed
// request/response contract: prompt in, text out, or a typed failure.
// The core is agnostic to the actual model runtime.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a generation failure. Timeout and ConnectionError
// are transient and eligible for retry; ModelError is not.
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection_error"
	FailureModel      FailureKind = "model_error"
)

// Error is a typed generation failure.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether err is an LLM failure worth retrying.
func Transient(err error) bool {
	var le *Error
	if !errors.As(err, &le) {
		return false
	}
	return le.Kind == FailureTimeout || le.Kind == FailureConnection
}

// GenerateRequest is the input to a single generation call.
type GenerateRequest struct {
	Prompt string
	// System is an optional system prompt.
	System string
	// Temperature overrides the configured temperature when non-negative.
	Temperature float64
	// MaxTokens limits the response length. Zero uses the configured value.
	MaxTokens int
}

// GenerateResponse is the output of a successful generation call.
type GenerateResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider defines the interface for LLM backends.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Generate produces text for the request, honoring the per-call
	// timeout carried by ctx. Failures are returned as *Error.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the backend is configured and reachable.
	IsAvailable(ctx context.Context) bool
}
