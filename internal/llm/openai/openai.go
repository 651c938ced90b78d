package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stock-recommender/internal/llm"
	"stock-recommender/internal/store"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

const defaultModel = openai.ChatModelGPT4oMini

// Client answers prompts with the OpenAI chat completions API.
type Client struct {
	client      openai.Client
	model       openai.ChatModel
	maxTokens   int
	temperature float64
}

// New reads OPENAI_API_KEY and builds a client from the llm config section.
// Extra request options are appended after the key (base URL overrides, retries).
func New(cfg *store.Config, opts ...option.RequestOption) (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}

	model := openai.ChatModel(cfg.LLM.Model)
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:      openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:       model,
		maxTokens:   cfg.LLM.MaxTokens,
		temperature: cfg.LLM.Temperature,
	}, nil
}

func (c *Client) Provider() string { return llm.ProviderOpenAI }

// Complete sends the conversation and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	maxTokens, temperature := llm.Settings(req, c.maxTokens, c.temperature)

	params := openai.ChatCompletionNewParams{
		Model:     c.model,
		Messages:  buildMessages(req),
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}

func buildMessages(req types.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
			continue
		}
		msgs = append(msgs, openai.UserMessage(m.Content))
	}
	return msgs
}
