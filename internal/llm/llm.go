// Package llm wraps the hosted language models used by the content pipeline.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single prompt sent to a model.
type Request struct {
	System      string  // Optional system instruction
	Prompt      string  // User prompt
	MaxTokens   int     // Zero uses the client default
	Temperature float32 // Zero uses the client default
}

// Completion is the model's answer plus the token usage needed for pricing.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Generator is implemented by every model client.
type Generator interface {
	Generate(ctx context.Context, req Request) (Completion, error)
	ModelName() string
}
