// Package llm holds helpers shared by the language model providers and their callers.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/types"
)

const (
	ProviderOpenAI = "OPENAI"
	ProviderClaude = "CLAUDE"
	ProviderGemini = "GEMINI"
	ProviderNoop   = "NOOP"
)

var (
	// ErrNoProvider is returned by the noop provider for every request.
	ErrNoProvider = errors.New("llm: no provider configured")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// IsAvailable reports whether c can actually answer prompts.
func IsAvailable(c interfaces.LLM) bool {
	return c != nil && c.Provider() != ProviderNoop
}

// Settings resolves max tokens and temperature, letting the request override the defaults.
func Settings(req types.CompletionRequest, maxTokens int, temperature float64) (int, float64) {
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return maxTokens, temperature
}

// CleanJSON strips markdown fences and any prose around the first JSON object or array.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	open := strings.IndexAny(content, "[{")
	if open < 0 {
		return content
	}
	closing := "}"
	if content[open] == '[' {
		closing = "]"
	}
	end := strings.LastIndex(content, closing)
	if end > open {
		return content[open : end+1]
	}
	return content
}

// StringArray parses a JSON array of strings out of a model answer.
func StringArray(content string) ([]string, error) {
	cleaned := CleanJSON(content)
	if !strings.HasPrefix(cleaned, "[") {
		return nil, fmt.Errorf("llm: no JSON array in response")
	}
	var raw []any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("llm: failed to parse array: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
