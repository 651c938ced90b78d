package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-recommender/internal/marketdata"
	"stock-recommender/internal/store"
	"stock-recommender/internal/types"
)

func flat(price float64, n int) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{Ts: int64(i), Close: price, Vol: 1e6}
	}
	return bars
}

func listed(md *marketdata.Static, symbol, sector string, capital float64) {
	md.SetInfo(types.CompanyInfo{Symbol: symbol, LongName: symbol + " Inc.", Sector: sector, MarketCap: capital})
	md.SetBars(symbol, flat(100, 30))
}

func momentum(scores map[string]float64) *types.MarketAnalysis {
	m := &types.MarketAnalysis{}
	for sym, s := range scores {
		m.MomentumStocks = append(m.MomentumStocks, types.MomentumStock{Symbol: sym, MomentumScore: s})
	}
	return m
}

func TestScenarioTiedLeaders(t *testing.T) {
	md := marketdata.NewStatic()
	listed(md, "AAPL", "Technology", 3e12)
	listed(md, "MSFT", "Technology", 3e12)

	in := types.NewExecutionContext()
	in.Market = momentum(map[string]float64{"AAPL": 4})
	in.Earnings = &types.EarningsAnalysis{
		FundamentalAnalysis: types.FundamentalAnalysis{StrongFundamentalStocks: []types.StrongFundamental{
			{Symbol: "AAPL", Score: 5}, {Symbol: "MSFT", Score: 6},
		}},
		AnalystRecommendations: types.AnalystRecommendations{StrongBuyStocks: []types.AnalystPick{
			{Symbol: "MSFT", UpsidePotential: 32},
		}},
	}

	out, err := New(md, nil, DefaultConfig()).Execute(context.Background(), in)
	require.NoError(t, err)
	recs := out.Recommendations.Recommendations
	require.Len(t, recs, 2)

	assert.Equal(t, "AAPL", recs[0].Symbol, "ties break by symbol")
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, "MSFT", recs[1].Symbol)
	assert.Equal(t, 2, recs[1].Rank)
	for _, r := range recs {
		assert.Equal(t, 9.0, r.CompositeScore)
		assert.Equal(t, types.TierStrongBuy, r.Recommendation)
		assert.Equal(t, 90, r.AIScore)
		assert.Equal(t, types.RiskLow, r.RiskLevel)
		assert.Equal(t, NoReasoning, r.Reasoning)
		assert.Equal(t, "down", r.ChangeDirection, "a flat month is not up")
	}
	assert.Equal(t, Methodology, out.Recommendations.Methodology)
	assert.Equal(t, Disclaimer, out.Recommendations.Disclaimer)
}

func TestNoCandidates(t *testing.T) {
	out, err := New(marketdata.NewStatic(), nil, DefaultConfig()).Execute(context.Background(), types.NewExecutionContext())
	require.NoError(t, err)

	res := out.Recommendations
	require.NotNil(t, res)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, types.MarketContext{
		MarketSentiment: "neutral",
		TrendingTopics:  []string{},
		VolatilityLevel: "moderate",
		TopSectors:      []string{},
	}, res.MarketContext)
}

func TestSectorCapAndMinScore(t *testing.T) {
	md := marketdata.NewStatic()
	for _, s := range []string{"AAA", "BBB", "CCC", "DDD"} {
		listed(md, s, "Technology", 50e9)
	}
	listed(md, "OIL", "Energy", 5e9)
	listed(md, "LOW", "Utilities", 5e9)
	md.SetInfo(types.CompanyInfo{Symbol: "NOBARS", Sector: "Healthcare", MarketCap: 1e9})

	in := types.NewExecutionContext()
	in.Market = momentum(map[string]float64{
		"AAA": 4, "BBB": 4, "CCC": 4, "DDD": 4, "OIL": 3, "LOW": 2, "NOBARS": 4, "GHOST": 4,
	})

	out, err := New(md, nil, DefaultConfig()).Execute(context.Background(), in)
	require.NoError(t, err)
	recs := out.Recommendations.Recommendations

	var symbols []string
	perSector := map[string]int{}
	for i, r := range recs {
		symbols = append(symbols, r.Symbol)
		perSector[r.Sector]++
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, []string{"AAA", "BBB", "OIL"}, symbols)
	for sector, n := range perSector {
		assert.LessOrEqual(t, n, 2, sector)
	}
	assert.Equal(t, types.RiskMedium, recs[0].RiskLevel)
	assert.Equal(t, types.RiskHigh, recs[2].RiskLevel)
	assert.Equal(t, types.TierModerateBuy, recs[0].Recommendation)
	assert.Equal(t, types.TierHold, recs[2].Recommendation)
}

func TestMaxResults(t *testing.T) {
	md := marketdata.NewStatic()
	scores := map[string]float64{}
	for i, s := range []string{"A", "B", "C", "D", "E", "F"} {
		listed(md, s, "Sector"+string(rune('A'+i)), 5e9)
		scores[s] = 4
	}
	in := types.NewExecutionContext()
	in.Market = momentum(scores)

	cfg := DefaultConfig()
	cfg.MaxResults = 4
	out, err := New(md, nil, cfg).Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, out.Recommendations.Recommendations, 4)
}

func TestSentimentAndTopics(t *testing.T) {
	md := marketdata.NewStatic()
	listed(md, "NVDA", "Technology", 3e12)
	listed(md, "XOM", "Energy", 400e9)

	in := types.NewExecutionContext()
	in.WebSearch = &types.WebSearchResults{
		MarketSentiment: types.SentimentBearish,
		TrendingTopics:  []string{"Technology rally", "Fed", "Rates", "Oil", "Jobs", "Housing"},
		TrendingStocks:  []string{"nvda"},
	}
	in.Market = momentum(map[string]float64{"NVDA": 4, "XOM": 4})
	in.Market.VolatilityMetrics.VolatilityLevel = "high"
	in.Market.SectorAnalysis.TopPerformingSectors = []string{"Technology", "Energy", "Utilities", "Materials"}

	out, err := New(md, nil, DefaultConfig()).Execute(context.Background(), in)
	require.NoError(t, err)
	recs := out.Recommendations.Recommendations
	require.Len(t, recs, 2)

	assert.Equal(t, "NVDA", recs[0].Symbol)
	assert.Equal(t, 4.0, recs[0].CompositeScore, "4 momentum + 1 topic - 1 bearish")
	assert.Equal(t, "XOM", recs[1].Symbol)
	assert.Equal(t, 3.0, recs[1].CompositeScore)

	mc := out.Recommendations.MarketContext
	assert.Equal(t, "bearish", mc.MarketSentiment)
	assert.Len(t, mc.TrendingTopics, 5)
	assert.Equal(t, "high", mc.VolatilityLevel)
	assert.Equal(t, []string{"Technology", "Energy", "Utilities"}, mc.TopSectors)
}

type rationaleLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (r *rationaleLLM) Provider() string { return "FAKE" }

func (r *rationaleLLM) Complete(_ context.Context, req types.CompletionRequest) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, req.Messages[0].Content)
	r.mu.Unlock()
	if strings.Contains(req.Messages[0].Content, "why MSFT is recommended") {
		return "", errors.New("rate limited")
	}
	return "  Solid growth and a clean balance sheet.  ", nil
}

func TestRationales(t *testing.T) {
	md := marketdata.NewStatic()
	listed(md, "AAPL", "Technology", 3e12)
	listed(md, "MSFT", "Software", 3e12)

	in := types.NewExecutionContext()
	in.WebSearch = &types.WebSearchResults{MarketSentiment: "bullish", TrendingTopics: []string{"AI", "Chips", "Cloud", "Rates"}}
	in.Market = momentum(map[string]float64{"AAPL": 4, "MSFT": 3})

	client := &rationaleLLM{}
	out, err := New(md, client, DefaultConfig()).Execute(context.Background(), in)
	require.NoError(t, err)
	recs := out.Recommendations.Recommendations
	require.Len(t, recs, 2)

	assert.Equal(t, "Solid growth and a clean balance sheet.", recs[0].Reasoning)
	assert.Equal(t, FallbackReasoning("MSFT"), recs[1].Reasoning)

	require.Len(t, client.prompts, 2)
	for _, p := range client.prompts {
		assert.Contains(t, p, "Market sentiment is bullish with moderate volatility. Trending topics include: AI, Chips, Cloud.")
		assert.Contains(t, p, "P/E Ratio: N/A")
	}
}

func TestComposite(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 0.0, Candidate{Symbol: "X"}.Composite(w))

	c := Candidate{Momentum: types.Float(6), Fundamental: types.Float(9), AnalystUpside: types.Float(31), TopicMatch: true, Sentiment: types.Float(1)}
	assert.Equal(t, 4.0+6+3+1+1, c.Composite(w))

	prev := -1.0
	for m := 0.0; m <= 6; m += 0.5 {
		s := Candidate{Momentum: types.Float(m)}.Composite(w)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
}

func TestCollect(t *testing.T) {
	in := types.NewExecutionContext()
	in.WebSearch = &types.WebSearchResults{TrendingStocks: []string{"tsla", " ", "AAPL"}, MarketSentiment: "bullish"}
	in.Earnings = &types.EarningsAnalysis{UpcomingEarnings: []types.UpcomingEarning{{Symbol: "COST"}}}

	cands := Collect(in)
	require.Len(t, cands, 3)
	assert.Equal(t, "AAPL", cands[0].Symbol)
	assert.Equal(t, "COST", cands[1].Symbol)
	assert.Equal(t, "TSLA", cands[2].Symbol)
	require.NotNil(t, cands[2].Sentiment)
	assert.Equal(t, 1.0, *cands[2].Sentiment)

	noWeb := types.NewExecutionContext()
	noWeb.Market = momentum(map[string]float64{"AAPL": 2})
	cands = Collect(noWeb)
	require.Len(t, cands, 1)
	assert.Nil(t, cands[0].Sentiment, "no web namespace means no sentiment opinion")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 0.0, AnalystPoints(10))
	assert.Equal(t, 1.0, AnalystPoints(10.5))
	assert.Equal(t, 2.0, AnalystPoints(25))
	assert.Equal(t, 3.0, AnalystPoints(30.1))

	assert.Equal(t, types.TierStrongBuy, Tier(8))
	assert.Equal(t, types.TierBuy, Tier(6))
	assert.Equal(t, types.TierModerateBuy, Tier(4))
	assert.Equal(t, types.TierHold, Tier(3.5))

	assert.Equal(t, types.RiskLow, Risk(200e9, -9))
	assert.Equal(t, types.RiskMedium, Risk(200e9, 12))
	assert.Equal(t, types.RiskMedium, Risk(50e9, 0))
	assert.Equal(t, types.RiskHigh, Risk(10e9, 0))

	assert.Equal(t, 45, AIScore(4.5))
	assert.Equal(t, 100, AIScore(14))
	assert.Equal(t, 0, AIScore(-1))

	assert.False(t, MatchesTopic([]string{"AI chip race"}, "NVDA", "Technology"))
	assert.True(t, MatchesTopic([]string{"Nvda earnings"}, "NVDA", ""))
	assert.True(t, MatchesTopic([]string{"energy stocks slide"}, "XOM", "Energy"))
	assert.False(t, MatchesTopic([]string{"anything"}, "XOM", "Unknown"))
}

func TestConfigFrom(t *testing.T) {
	cfg := store.Default()
	cfg.Scoring.SectorCap = 3
	got := ConfigFrom(cfg)
	assert.Equal(t, 3, got.SectorCap)
	assert.Equal(t, 3.0, got.MinScore)
	assert.Equal(t, DefaultConfig(), ConfigFrom(nil))

	zero := 0.0
	cfg.Scoring.MinScore = &zero
	assert.Zero(t, ConfigFrom(cfg).MinScore, "explicit zero disables the cutoff")
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	in := types.NewExecutionContext()
	in.Market = momentum(map[string]float64{"AAPL": 4})
	_, err := New(marketdata.NewStatic(), nil, DefaultConfig()).Execute(ctx, in)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
