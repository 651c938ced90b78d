package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"stock-recommender/internal/llm"
	"stock-recommender/internal/store"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

const defaultModel = "gemini-2.5-flash"

// Client answers prompts with the Gemini API.
type Client struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// New reads GEMINI_API_KEY and builds a client from the llm config section.
func New(ctx context.Context, cfg *store.Config) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY missing")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.LLM.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:      genaiClient,
		model:       model,
		maxTokens:   cfg.LLM.MaxTokens,
		temperature: cfg.LLM.Temperature,
	}, nil
}

func (c *Client) Provider() string { return llm.ProviderGemini }

// Complete sends the conversation and concatenates the text parts of the first candidate.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "gemini-api-call")
	defer span.End()

	result, err := c.client.Models.GenerateContent(ctx, c.model, buildContents(req), c.buildConfig(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(result)
}

func (c *Client) buildConfig(req types.CompletionRequest) *genai.GenerateContentConfig {
	maxTokens, temperature := llm.Settings(req, c.maxTokens, c.temperature)

	config := &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if temperature > 0 {
		t := float32(temperature)
		config.Temperature = &t
	}
	return config
}

func buildContents(req types.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}
