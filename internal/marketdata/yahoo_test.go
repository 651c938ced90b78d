package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-recommender/internal/cache"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/types"
)

var (
	_ interfaces.MarketData = (*Yahoo)(nil)
	_ interfaces.MarketData = (*Static)(nil)
)

const chartJSON = `{"chart":{"result":[{
	"timestamp":[1700000000,1700086400,1700172800],
	"indicators":{"quote":[{
		"open":[10,11,null],
		"high":[11,12,null],
		"low":[9,10,null],
		"close":[10.5,11.5,null],
		"volume":[1000,2000,null]
	}]}
}],"error":null}}`

const summaryJSON = `{"quoteSummary":{"result":[{
	"price":{"longName":"Apple Inc.","shortName":"Apple","regularMarketPrice":{"raw":190.5},"marketCap":{"raw":2.9e12}},
	"summaryProfile":{"sector":"Technology"},
	"summaryDetail":{"trailingPE":{"raw":29.1,"fmt":"29.10"}},
	"defaultKeyStatistics":{"pegRatio":{},"priceToBook":{"raw":45.2},"earningsQuarterlyGrowth":{"raw":0.11}},
	"financialData":{"currentPrice":{"raw":191.0},"targetMeanPrice":{"raw":230},"recommendationKey":"BUY",
		"debtToEquity":{"raw":150},"returnOnEquity":{"raw":1.47},"profitMargins":{"raw":0.26},
		"revenueGrowth":{"raw":0.06},"earningsGrowth":{"raw":0.1}},
	"calendarEvents":{"earnings":{"earningsDate":[{"raw":1701000000}]}}
}],"error":null}}`

const screenerJSON = `{"finance":{"result":[{"quotes":[{"symbol":"nvda"},{"symbol":"TSLA"},{"symbol":"NVDA"}]}]}}`

func newTestYahoo(t *testing.T, h http.HandlerFunc, opts ...YahooOption) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]YahooOption{WithRateLimit(1000, 10), WithRetry(nil)}, opts...)
	return NewYahoo(NewYahooClient(srv.URL, 5*time.Second), opts...)
}

func TestYahooHistory(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(chartJSON))
	})

	bars, err := y.History(context.Background(), "aapl", types.Period1M)
	require.NoError(t, err)
	require.Len(t, bars, 2, "bars without a close are dropped")
	assert.Equal(t, 11.5, bars[1].Close)
	assert.Equal(t, 2000.0, bars[1].Vol)
}

func TestYahooInfo(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("modules"), "financialData")
		_, _ = w.Write([]byte(summaryJSON))
	})

	info, err := y.Info(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", info.Name())
	assert.Equal(t, "Technology", info.Sector)
	assert.Equal(t, 2.9e12, info.MarketCap)
	assert.Equal(t, 191.0, info.CurrentPrice, "financialData price wins")
	require.NotNil(t, info.TrailingPE)
	assert.Equal(t, 29.1, *info.TrailingPE)
	assert.Nil(t, info.PEGRatio, "empty raw objects stay unset")
	assert.Equal(t, "buy", info.RecommendationKey)
	require.NotNil(t, info.DebtToEquity)
	assert.InDelta(t, 1.5, *info.DebtToEquity, 1e-9, "percent converted to a ratio")
	require.NotNil(t, info.EarningsDate)
	assert.Equal(t, int64(1701000000), info.EarningsDate.Unix())
}

func TestYahooMostActive(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "most_actives", r.URL.Query().Get("scrIds"))
		assert.Equal(t, "25", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(screenerJSON))
	})

	syms, err := y.MostActive(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "TSLA"}, syms)
}

func TestYahooStatusError(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := y.Info(context.Background(), "ZZZZ")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "ZZZZ", apiErr.Symbol)
}

func TestYahooEmptyResultIsNoData(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[]}}`))
	})

	_, err := y.History(context.Background(), "AAPL", types.Period5D)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooUsesCache(t *testing.T) {
	var hits atomic.Int32
	mem := cache.NewMemory(0)
	defer mem.Close()

	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(chartJSON))
	}, WithCache(mem, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := y.History(context.Background(), "AAPL", types.Period1M)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}
