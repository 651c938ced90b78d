package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	t.Setenv("LOG_TRACING_ENABLED", "")
	t.Setenv("LOG_TRACING_FILE", "")
	require.NoError(t, Init())
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "noop")
	span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestSpansExported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithWriter(&buf))
	require.True(t, Enabled())

	ctx, span := StartSpanWith(context.Background(), "agent.market_analysis", "agent.namespace", "market_analysis", "dangling")
	traceID, spanID, ok := GetTraceFields(ctx)
	assert.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, Enabled())
	assert.Contains(t, buf.String(), "agent.market_analysis")
	assert.Contains(t, buf.String(), "agent.namespace")
	assert.NotContains(t, buf.String(), "dangling")
}
