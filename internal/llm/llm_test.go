package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-recommender/internal/types"
)

type stubLLM struct{ provider string }

func (s stubLLM) Complete(context.Context, types.CompletionRequest) (string, error) { return "", nil }
func (s stubLLM) Provider() string                                                  { return s.provider }

func TestIsAvailable(t *testing.T) {
	assert.False(t, IsAvailable(nil))
	assert.False(t, IsAvailable(stubLLM{provider: ProviderNoop}))
	assert.True(t, IsAvailable(stubLLM{provider: ProviderClaude}))
}

func TestSettings(t *testing.T) {
	n, temp := Settings(types.CompletionRequest{}, 256, 0.2)
	assert.Equal(t, 256, n)
	assert.Equal(t, 0.2, temp)

	n, temp = Settings(types.CompletionRequest{MaxTokens: 50, Temperature: 0.7}, 256, 0.2)
	assert.Equal(t, 50, n)
	assert.Equal(t, 0.7, temp)

	n, _ = Settings(types.CompletionRequest{}, 0, 0)
	assert.Equal(t, 512, n)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n[\"AAPL\"]\n```", `["AAPL"]`},
		{`Here you go: {"a": 1} hope that helps`, `{"a": 1}`},
		{`Tickers: ["NVDA", "AMD"].`, `["NVDA", "AMD"]`},
		{"bullish", "bullish"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanJSON(tt.in))
	}
}

func TestStringArray(t *testing.T) {
	got, err := StringArray("```json\n[\"AI chips\", 42, \"rate cuts\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI chips", "rate cuts"}, got)

	_, err = StringArray("AI chips, rate cuts")
	assert.Error(t, err)
}
