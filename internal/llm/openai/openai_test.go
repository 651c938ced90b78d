package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-recommender/internal/store"
	"stock-recommender/internal/types"
)

func TestNewRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(store.Default())
	assert.EqualError(t, err, "OPENAI_API_KEY missing")
}

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  bullish \n"}}]
		}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	c, err := New(store.Default(), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	req := types.CompletionRequest{
		System: "You are a market analyst.",
		Messages: []types.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "sentiment?"},
		},
		MaxTokens: 10,
	}
	out, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "bullish", out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 10, body["max_tokens"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	c, err := New(store.Default(), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), types.UserPrompt("", "x"))
	assert.Error(t, err)
}
