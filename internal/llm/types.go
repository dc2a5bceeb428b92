package llm

import (
	"context"
	"errors"
)

var (
	// ErrNoChoices is returned when the service answers without any completion.
	ErrNoChoices = errors.New("llm returned no choices")
	// ErrEmptyCompletion is returned when the completion text is blank.
	ErrEmptyCompletion = errors.New("llm returned empty content")
)

// Schema describes the JSON object a structured completion must produce.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Request is one completion call. A nil Schema requests free text.
type Request struct {
	System      string
	User        string
	Schema      *Schema
	Temperature float64
	MaxTokens   int
}

// Completer is the narrow completion contract the research stages depend on.
// Implementations must honour ctx cancellation and deadlines.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
