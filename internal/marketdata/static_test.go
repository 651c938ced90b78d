package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-recommender/internal/ta"
	"stock-recommender/internal/types"
)

func TestStaticHistoryWindow(t *testing.T) {
	s := NewStatic()
	s.SetBars("abc", TrendBars(10, 1, 1000, 70, time.Now()))

	bars, err := s.History(context.Background(), "ABC", types.Period1M)
	require.NoError(t, err)
	assert.Len(t, bars, 21)

	bars, err = s.History(context.Background(), "ABC", types.Period3M)
	require.NoError(t, err)
	assert.Len(t, bars, 63)

	_, err = s.History(context.Background(), "XYZ", types.Period1M)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestStaticMostActive(t *testing.T) {
	s := NewStatic()
	_, err := s.MostActive(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoData)

	s.SetMostActive("aapl", "MSFT", "AAPL", "nvda")
	got, err := s.MostActive(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestSampleUniverse(t *testing.T) {
	s := Sample(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	info, err := s.Info(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Technology", info.Sector)
	require.NotNil(t, info.EarningsDate)

	bars, err := s.History(ctx, "NVDA", types.Period3M)
	require.NoError(t, err)
	closes := types.Closes(bars)
	rsi := ta.RSI(closes, 14)
	assert.Less(t, rsi, 100.0)
	assert.Greater(t, ta.Last(closes), ta.SMA(closes, 50), "an uptrending listing ends above its SMA50")

	for _, sym := range []string{"^GSPC", "^VIX", "SPY", "XLK", "XLB"} {
		_, err := s.History(ctx, sym, types.Period1M)
		assert.NoError(t, err, sym)
	}
}
