package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"stock-recommender/internal/agents/synth"
	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/marketdata"
	"stock-recommender/internal/pipeline"
	"stock-recommender/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stage struct {
	name string
	ns   types.Namespace
	run  func(in *types.ExecutionContext) (*types.ExecutionContext, error)
}

func (s stage) Name() string               { return s.name }
func (s stage) Description() string        { return s.name }
func (s stage) Namespace() types.Namespace { return s.ns }
func (s stage) Execute(_ context.Context, in *types.ExecutionContext) (*types.ExecutionContext, error) {
	return s.run(in)
}

func web() stage {
	return stage{"web_search", types.NamespaceWebSearch, func(*types.ExecutionContext) (*types.ExecutionContext, error) {
		out := types.NewExecutionContext()
		out.WebSearch = &types.WebSearchResults{
			MarketSentiment: types.SentimentBullish,
			TrendingTopics:  []string{"AI", "Rates"},
			TrendingStocks:  []string{"AAPL"},
		}
		return out, nil
	}}
}

func market() stage {
	return stage{"market_analysis", types.NamespaceMarket, func(*types.ExecutionContext) (*types.ExecutionContext, error) {
		out := types.NewExecutionContext()
		out.Market = &types.MarketAnalysis{
			MomentumStocks:    []types.MomentumStock{{Symbol: "AAPL", MomentumScore: 4}},
			VolatilityMetrics: types.Volatility{VolatilityLevel: "low"},
			SectorAnalysis:    types.SectorAnalysis{TopPerformingSectors: []string{"Technology"}},
		}
		return out, nil
	}}
}

// earnings reports an upcoming date for every momentum stock it can see.
func earnings() stage {
	return stage{"earnings_analysis", types.NamespaceEarnings, func(in *types.ExecutionContext) (*types.ExecutionContext, error) {
		out := types.NewExecutionContext()
		out.Earnings = &types.EarningsAnalysis{UpcomingEarnings: []types.UpcomingEarning{}}
		if in.Market != nil {
			for _, m := range in.Market.MomentumStocks {
				out.Earnings.UpcomingEarnings = append(out.Earnings.UpcomingEarnings, types.UpcomingEarning{Symbol: m.Symbol})
			}
		}
		return out, nil
	}}
}

func broken(name string, ns types.Namespace) stage {
	return stage{name, ns, func(*types.ExecutionContext) (*types.ExecutionContext, error) {
		return nil, errors.New("upstream timeout")
	}}
}

func newService(t *testing.T, discovery ...stage) *Service {
	t.Helper()
	md := marketdata.NewStatic()
	md.SetInfo(types.CompanyInfo{Symbol: "AAPL", LongName: "Apple Inc.", Sector: "Technology", MarketCap: 3e12})
	md.SetBars("AAPL", marketdata.TrendBars(180, 0.2, 5e7, 30, time.Now()))

	s, err := New(synth.New(md, nil, synth.DefaultConfig()), toAgents(discovery)...)
	require.NoError(t, err)
	return s
}

func TestGenerateParallelWithFailedStage(t *testing.T) {
	s := newService(t, web(), market(), broken("earnings_analysis", types.NamespaceEarnings))

	resp := s.GenerateRecommendations(context.Background(), true)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RunID)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Recommendations, 1)
	rec := resp.Recommendations[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, 5.0, rec.CompositeScore, "momentum 4 + bullish 1")
	assert.Equal(t, types.TierModerateBuy, rec.Recommendation)

	assert.Equal(t, map[string]string{
		"web_search":               StatusSuccess,
		"market_analysis":          StatusSuccess,
		"earnings_analysis":        StatusFailed,
		"recommendation_synthesis": StatusSuccess,
	}, resp.AgentStatus)

	assert.Equal(t, MarketContext{
		MarketSentiment:       "bullish",
		TrendingTopics:        []string{"AI", "Rates"},
		VolatilityLevel:       "low",
		TopPerformingSectors:  []string{"Technology"},
		UpcomingEarningsCount: 0,
	}, resp.MarketContext)
	assert.Equal(t, synth.Methodology, resp.Methodology)
	assert.Equal(t, synth.Disclaimer, resp.Disclaimer)
	assert.GreaterOrEqual(t, resp.ExecutionTimeSeconds, 0.0)
}

func TestGenerateSequentialThreadsContext(t *testing.T) {
	s := newService(t, web(), market(), earnings())

	seq := s.GenerateRecommendations(context.Background(), false)
	par := s.GenerateRecommendations(context.Background(), true)

	assert.Equal(t, 1, seq.MarketContext.UpcomingEarningsCount, "earnings saw market output")
	assert.Equal(t, 0, par.MarketContext.UpcomingEarningsCount, "parallel stages see only the initial snapshot")
	assert.NotEqual(t, seq.RunID, par.RunID)
}

func TestGenerateKeepsCallerRunID(t *testing.T) {
	s := newService(t, web())
	resp := s.GenerateRecommendations(pipeline.WithRunID(context.Background(), "run-7"), true)
	assert.Equal(t, "run-7", resp.RunID)
}

func TestGenerateCancelled(t *testing.T) {
	s := newService(t, web(), market())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := s.GenerateRecommendations(ctx, true)

	assert.False(t, resp.Success)
	assert.Equal(t, context.Canceled.Error(), resp.Error)
	assert.Empty(t, resp.Recommendations)
	assert.Equal(t, MarketContext{
		MarketSentiment:      "unknown",
		TrendingTopics:       []string{},
		VolatilityLevel:      "unknown",
		TopPerformingSectors: []string{},
	}, resp.MarketContext)
}

func TestResponseJSON(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	resp := ErrorResponse("abc", start, start.Add(1500*time.Millisecond), errors.New("boom"))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"run_id": "abc",
		"timestamp": "2026-05-01T09:30:01.5Z",
		"execution_time_seconds": 1.5,
		"recommendations": [],
		"market_context": {
			"market_sentiment": "unknown",
			"trending_topics": [],
			"volatility_level": "unknown",
			"top_performing_sectors": [],
			"upcoming_earnings_count": 0
		},
		"error": "boom"
	}`, string(raw))
}

func TestNewRejectsDuplicateStage(t *testing.T) {
	md := marketdata.NewStatic()
	_, err := New(synth.New(md, nil, synth.DefaultConfig()), toAgents([]stage{web(), web()})...)
	assert.ErrorIs(t, err, pipeline.ErrDuplicateAgent)

	_, err = New(nil, toAgents([]stage{web()})...)
	assert.Error(t, err)
}

func toAgents(stages []stage) []interfaces.Agent {
	out := make([]interfaces.Agent, len(stages))
	for i, s := range stages {
		out[i] = s
	}
	return out
}
