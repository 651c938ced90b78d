package llmobs

import (
	"context"
	"errors"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/llm"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

// observableLLM wraps an LLM with observability (logging & tracing)
type observableLLM struct {
	client interfaces.LLM
}

// Compile-time interface check
var _ interfaces.LLM = (*observableLLM)(nil)

// Wrap wraps a language model client with observability middleware
func Wrap(client interfaces.LLM) interfaces.LLM {
	return &observableLLM{client: client}
}

func (o *observableLLM) Provider() string { return o.client.Provider() }

// Complete forwards the request with a span and timing logs
func (o *observableLLM) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// DebugSkip(1) reports the actual caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"provider", o.client.Provider(),
		"messages", len(req.Messages),
		"max_tokens", req.MaxTokens,
	)

	timer := logger.StartOperation(ctx, "llm.Complete", "provider", o.client.Provider())
	out, err := o.client.Complete(timer.GetContext(), req)
	if err != nil {
		if errors.Is(err, llm.ErrNoProvider) {
			timer.End("skipped", true)
			return "", err
		}
		timer.EndWithError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err, "provider", o.client.Provider())
		return "", err
	}

	timer.End("response_chars", len(out))
	logger.InfoSkip(ctx, 1, "Completion received",
		"provider", o.client.Provider(),
		"response_chars", len(out),
	)
	return out, nil
}
