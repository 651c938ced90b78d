package noop

import (
	"context"

	"stock-recommender/internal/llm"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/types"
)

// Client is the fallback used when no language model is configured.
// Callers check llm.IsAvailable and take their non-LLM path.
type Client struct{}

// New returns a provider that refuses every request.
func New() *Client {
	return &Client{}
}

func (c *Client) Provider() string { return llm.ProviderNoop }

// Complete always fails with llm.ErrNoProvider.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	logger.Debug(ctx, "Noop LLM called - no provider configured", "messages", len(req.Messages))
	return "", llm.ErrNoProvider
}
