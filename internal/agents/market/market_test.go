package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-recommender/internal/marketdata"
	"stock-recommender/internal/types"
)

// ramp builds n daily bars moving linearly by step per day.
func ramp(start, step float64, n int, vol float64) []types.Bar {
	bars := make([]types.Bar, n)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = types.Bar{Ts: end.AddDate(0, 0, i-n).Unix(), Open: c, High: c, Low: c, Close: c, Vol: vol}
	}
	return bars
}

func TestMomentum(t *testing.T) {
	t.Run("rising with volume surge", func(t *testing.T) {
		bars := ramp(100, 1, 63, 1e6)
		for i := len(bars) - 5; i < len(bars); i++ {
			bars[i].Vol = 3e6
		}
		m, ok := Momentum("AAPL", bars)
		require.True(t, ok)
		// trend +2, 20d return +2, volume +1; a straight line has RSI 100 so no RSI point
		assert.Equal(t, 5.0, m.MomentumScore)
		assert.Equal(t, 100.0, m.RSI)
		assert.Greater(t, m.VolumeRatio, 1.2)
		assert.InDelta(t, 162.0, m.CurrentPrice, 1e-9)
	})

	t.Run("falling", func(t *testing.T) {
		m, ok := Momentum("XOM", ramp(200, -1, 63, 1e6))
		require.True(t, ok)
		assert.Equal(t, 0.0, m.MomentumScore)
	})

	t.Run("short history", func(t *testing.T) {
		_, ok := Momentum("NEW", ramp(10, 1, 42, 1e6))
		assert.False(t, ok)
	})
}

func TestLevels(t *testing.T) {
	for _, tc := range []struct {
		vix         float64
		level, fear string
	}{
		{12, "low", "low"},
		{20, "moderate", "low"},
		{26, "moderate", "high"},
		{30, "moderate", "high"},
		{31, "high", "high"},
	} {
		assert.Equal(t, tc.level, VolatilityLevel(tc.vix), "vix %v", tc.vix)
		assert.Equal(t, tc.fear, FearLevel(tc.vix), "vix %v", tc.vix)
	}

	assert.Equal(t, "increasing", VolumeTrend(120, 100))
	assert.Equal(t, "decreasing", VolumeTrend(80, 100))
	assert.Equal(t, "stable", VolumeTrend(105, 100))
}

func fixture() *marketdata.Static {
	md := marketdata.NewStatic()
	md.SetBars("^GSPC", ramp(5000, 5, 70, 1e9))
	md.SetBars("^DJI", ramp(40000, -20, 70, 1e9))

	for i, etf := range SectorETFs {
		md.SetBars(etf.Symbol, ramp(100, float64(len(SectorETFs)-i)*0.1, 70, 1e7))
	}

	md.SetBars("^VIX", ramp(32, 0, 70, 0))

	spy := ramp(500, 0.5, 70, 1e6)
	for i := len(spy) - 5; i < len(spy); i++ {
		spy[i].Vol = 2e6
	}
	md.SetBars("SPY", spy)

	md.SetBars("AAPL", ramp(150, 1, 70, 1e6))
	md.SetInfo(types.CompanyInfo{Symbol: "AAPL", MarketCap: 3e12})
	md.SetBars("PENNY", ramp(1, 0.01, 70, 1e6))
	md.SetInfo(types.CompanyInfo{Symbol: "PENNY", MarketCap: 1e8})
	md.SetBars("THIN", ramp(50, 0.1, 70, 1000))
	md.SetInfo(types.CompanyInfo{Symbol: "THIN", MarketCap: 1e12})
	md.SetBars("NOINFO", ramp(50, 0.1, 70, 1e6))
	md.SetMostActive("AAPL", "PENNY", "THIN", "NOINFO")
	return md
}

func TestExecute(t *testing.T) {
	in := types.NewExecutionContext()
	in.WebSearch = &types.WebSearchResults{TrendingStocks: []string{"nvda", "AAPL"}}

	out, err := New(fixture()).Execute(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, out.Market)
	m := out.Market

	require.Len(t, m.MarketTrends, 2)
	assert.Equal(t, "bullish", m.MarketTrends["^GSPC"].Trend)
	assert.Equal(t, "bearish", m.MarketTrends["^DJI"].Trend)

	assert.Len(t, m.SectorAnalysis.SectorPerformance, len(SectorETFs))
	assert.Equal(t, []string{"Technology", "Healthcare", "Financials"}, m.SectorAnalysis.TopPerformingSectors)
	assert.Equal(t, []string{"Utilities", "Real Estate", "Materials"}, m.SectorAnalysis.WorstPerformingSectors)

	assert.Equal(t, "high", m.VolatilityMetrics.VolatilityLevel)
	assert.Equal(t, "high", m.VolatilityMetrics.MarketFearLevel)
	require.NotNil(t, m.VolatilityMetrics.VIXCurrent)
	assert.Equal(t, 32.0, *m.VolatilityMetrics.VIXCurrent)

	assert.Equal(t, "increasing", m.VolumeAnalysis.VolumeTrend)

	assert.Equal(t, []string{"NVDA", "AAPL"}, m.ActiveStocks, "web stocks first, screener only adds liquid large caps")
	require.Len(t, m.MomentumStocks, 1, "NVDA has no history")
	assert.Equal(t, "AAPL", m.MomentumStocks[0].Symbol)
	assert.Equal(t, 4.0, m.MomentumStocks[0].MomentumScore)

	assert.Equal(t, []types.Namespace{types.NamespaceMarket}, out.Namespaces())
}

func TestExecuteWithoutData(t *testing.T) {
	out, err := New(marketdata.NewStatic()).Execute(context.Background(), nil)
	require.NoError(t, err)

	m := out.Market
	assert.Empty(t, m.MarketTrends)
	assert.Empty(t, m.SectorAnalysis.SectorPerformance)
	assert.Equal(t, types.Volatility{VolatilityLevel: "moderate"}, m.VolatilityMetrics)
	assert.Equal(t, types.VolumeAnalysis{VolumeTrend: "stable"}, m.VolumeAnalysis)
	assert.Empty(t, m.ActiveStocks)
	assert.Empty(t, m.MomentumStocks)
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(fixture()).Execute(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
