package interfaces

import (
	"context"

	"stock-recommender/internal/types"
)

// LLM is a language model collaborator.
type LLM interface {
	Complete(ctx context.Context, req types.CompletionRequest) (string, error)

	// Provider names the backend, e.g. "OPENAI". The noop fallback reports "NOOP".
	Provider() string
}
