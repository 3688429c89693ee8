package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("llm returned empty completion")

// Provider is the LLM boundary used by prompt-backed capabilities.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a provider-neutral completion call.
type CompletionRequest struct {
	TemplateID  string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature *float64
}

// ChatMessage is one turn passed to the model. Role is "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, req CompletionRequest) (string, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
