package claude

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"stock-recommender/internal/llm"
	"stock-recommender/internal/store"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

const defaultModel = anthropic.ModelClaudeHaiku4_5

// Client answers prompts with the Anthropic Messages API.
type Client struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int
	temperature float64
}

// New reads CLAUDE_API_KEY and builds a client from the llm config section.
// CLAUDE_API_ENDPOINT overrides the base URL for proxies.
func New(cfg *store.Config, opts ...option.RequestOption) (*Client, error) {
	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return nil, errors.New("CLAUDE_API_KEY missing")
	}

	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		base = append(base, option.WithBaseURL(ep))
	}

	model := anthropic.Model(cfg.LLM.Model)
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:      anthropic.NewClient(append(base, opts...)...),
		model:       model,
		maxTokens:   cfg.LLM.MaxTokens,
		temperature: cfg.LLM.Temperature,
	}, nil
}

func (c *Client) Provider() string { return llm.ProviderClaude }

// Complete sends the conversation and joins the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	maxTokens, temperature := llm.Settings(req, c.maxTokens, c.temperature)

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages:  buildMessages(req),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

func buildMessages(req types.CompletionRequest) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	return msgs
}
