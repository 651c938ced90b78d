// Package synth turns the merged discovery output into ranked, annotated recommendations.
package synth

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/llm"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/store"
	"stock-recommender/internal/ta"
	"stock-recommender/internal/types"
)

const Name = "recommendation_synthesis"

const (
	Methodology = "Recommendations based on momentum analysis, fundamental metrics, analyst sentiment, " +
		"market trends, and current news sentiment. Scores combine technical indicators, earnings data, " +
		"and market context."
	Disclaimer = "These recommendations are for informational purposes only and do not constitute financial advice."

	NoReasoning = "AI reasoning not available"

	rationaleSystemPrompt = "You are a financial analyst providing concise reasoning for stock recommendations. " +
		"Keep responses to 2-3 sentences highlighting key factors."

	rationaleConcurrency = 3
)

// Config holds the selection constraints.
type Config struct {
	MinScore   float64
	SectorCap  int
	MaxResults int
	Weights    Weights
}

// DefaultConfig returns the standard constraints.
func DefaultConfig() Config {
	return Config{MinScore: 3, SectorCap: 2, MaxResults: 10, Weights: DefaultWeights()}
}

// ConfigFrom reads the scoring section, keeping defaults for unset values.
func ConfigFrom(cfg *store.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	s := cfg.Scoring
	if s.MinScore != nil {
		c.MinScore = *s.MinScore
	}
	if s.SectorCap > 0 {
		c.SectorCap = s.SectorCap
	}
	if s.MaxResults > 0 {
		c.MaxResults = s.MaxResults
	}
	if s.MomentumCap > 0 {
		c.Weights.MomentumCap = s.MomentumCap
	}
	if s.FundamentalCap > 0 {
		c.Weights.FundamentalCap = s.FundamentalCap
	}
	return c
}

// Agent is the synthesis stage. It keeps no state between runs.
type Agent struct {
	md  interfaces.MarketData
	llm interfaces.LLM
	cfg Config
	now func() time.Time
}

var _ interfaces.Agent = (*Agent)(nil)

// New creates the stage. client may be nil, in which case rationales are fixed text.
func New(md interfaces.MarketData, client interfaces.LLM, cfg Config) *Agent {
	return &Agent{md: md, llm: client, cfg: cfg, now: time.Now}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Description() string {
	return "Synthesizes all agent data to generate final stock recommendations"
}

func (a *Agent) Namespace() types.Namespace { return types.NamespaceRecommendations }

// selected is a candidate that passed selection, with its enrichment data.
type selected struct {
	symbol      string
	score       float64
	info        types.CompanyInfo
	price       float64
	monthChange float64
}

func (a *Agent) Execute(ctx context.Context, in *types.ExecutionContext) (*types.ExecutionContext, error) {
	logger.Info(ctx, "Starting stock recommendation synthesis")
	if in == nil {
		in = types.NewExecutionContext()
	}

	infos := newInfoCache(a.md)
	candidates := Collect(in)

	var picks []selected
	if len(candidates) == 0 {
		logger.Warn(ctx, "No stocks discovered by any agent")
	} else {
		logger.Info(ctx, "Candidates discovered by agents", "count", len(candidates))
		picks = a.selectTop(ctx, a.score(ctx, in, candidates, infos), infos)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reasons := a.rationales(ctx, in, picks)
	recs := make([]types.Recommendation, 0, len(picks))
	for i, p := range picks {
		rec := types.Recommendation{
			Rank:            i + 1,
			Symbol:          p.symbol,
			CompanyName:     p.info.Name(),
			Sector:          p.info.SectorOrUnknown(),
			CurrentPrice:    p.price,
			MonthChange:     p.monthChange,
			ChangeDirection: direction(p.monthChange),
			MarketCap:       p.info.MarketCap,
			Recommendation:  Tier(p.score),
			CompositeScore:  p.score,
			AIScore:         AIScore(p.score),
			Reasoning:       reasons[i],
			PERatio:         p.info.TrailingPE,
			RiskLevel:       Risk(p.info.MarketCap, p.monthChange),
		}
		logger.Recommendation(ctx, rec.Rank, rec.Symbol, string(rec.Recommendation), rec.CompositeScore,
			"sector", rec.Sector, "risk", string(rec.RiskLevel))
		recs = append(recs, rec)
	}

	out := types.NewExecutionContext()
	out.Recommendations = &types.StockRecommendations{
		Recommendations: recs,
		MarketContext:   BuildMarketContext(in),
		Methodology:     Methodology,
		Timestamp:       a.now(),
		Disclaimer:      Disclaimer,
	}
	logger.Info(ctx, "Generated stock recommendations", "count", len(recs))
	return out, nil
}

type scored struct {
	symbol string
	score  float64
}

// score computes composites and orders them by score, then symbol.
func (a *Agent) score(ctx context.Context, in *types.ExecutionContext, candidates []*Candidate, infos *infoCache) []scored {
	var topics []string
	if in.WebSearch != nil {
		topics = in.WebSearch.TrendingTopics
	}

	out := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if len(topics) > 0 {
			sector := ""
			if info, err := infos.get(ctx, c.Symbol); err == nil {
				sector = info.Sector
			}
			c.TopicMatch = MatchesTopic(topics, c.Symbol, sector)
		}
		out = append(out, scored{symbol: c.Symbol, score: c.Composite(a.cfg.Weights)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].symbol < out[j].symbol
	})
	return out
}

// selectTop scans in score order applying the minimum score, data availability and sector cap.
func (a *Agent) selectTop(ctx context.Context, ranked []scored, infos *infoCache) []selected {
	var picks []selected
	perSector := make(map[string]int)

	for _, r := range ranked {
		if len(picks) >= a.cfg.MaxResults || ctx.Err() != nil {
			break
		}
		if r.score < a.cfg.MinScore {
			continue
		}
		info, err := infos.get(ctx, r.symbol)
		if err != nil {
			logger.Warn(ctx, "Failed to get data for candidate", "symbol", r.symbol, "error", err)
			continue
		}
		bars, err := a.md.History(ctx, r.symbol, types.Period1M)
		if err != nil || len(bars) == 0 {
			logger.Warn(ctx, "No price history for candidate", "symbol", r.symbol, "error", err)
			continue
		}
		sector := info.SectorOrUnknown()
		if perSector[sector] >= a.cfg.SectorCap {
			logger.Debug(ctx, "Sector cap reached", "symbol", r.symbol, "sector", sector)
			continue
		}
		perSector[sector]++

		closes := types.Closes(bars)
		change := ta.PctChange(closes, len(closes))
		if math.IsNaN(change) {
			change = 0
		}
		picks = append(picks, selected{
			symbol:      r.symbol,
			score:       r.score,
			info:        info,
			price:       ta.Last(closes),
			monthChange: change,
		})
	}
	return picks
}

// rationales returns one explanation per pick, in order.
func (a *Agent) rationales(ctx context.Context, in *types.ExecutionContext, picks []selected) []string {
	out := make([]string, len(picks))
	if !llm.IsAvailable(a.llm) {
		for i := range out {
			out[i] = NoReasoning
		}
		return out
	}

	summary := ContextSummary(in)
	var g errgroup.Group
	g.SetLimit(rationaleConcurrency)
	for i, p := range picks {
		g.Go(func() error {
			text, err := a.llm.Complete(ctx, types.UserPrompt(rationaleSystemPrompt, rationalePrompt(summary, p)))
			text = strings.TrimSpace(text)
			if err != nil || text == "" {
				logger.Warn(ctx, "Failed to generate reasoning", "symbol", p.symbol, "error", err)
				text = FallbackReasoning(p.symbol)
			}
			out[i] = text
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// FallbackReasoning is used when the language model call fails.
func FallbackReasoning(symbol string) string {
	return fmt.Sprintf("Strong technical and fundamental indicators suggest %s has attractive upside potential.", symbol)
}

func rationalePrompt(summary string, p selected) string {
	pe := "N/A"
	if p.info.TrailingPE != nil {
		pe = fmt.Sprintf("%.2f", *p.info.TrailingPE)
	}
	return fmt.Sprintf(`Based on the following market analysis and stock data, provide a brief reasoning for why %s is recommended:

Market Context:
%s

Stock Details:
Stock: %s (%s)
Sector: %s
Current Price: $%.2f
1-Month Change: %.1f%%
Composite Score: %.1f
P/E Ratio: %s

Provide 2-3 sentences explaining why this stock is attractive for investment.`,
		p.symbol, summary, p.symbol, p.info.Name(), p.info.SectorOrUnknown(), p.price, p.monthChange, p.score, pe)
}

// ContextSummary is the one-line market description given to the language model.
func ContextSummary(in *types.ExecutionContext) string {
	mc := BuildMarketContext(in)
	topics := mc.TrendingTopics
	if len(topics) > 3 {
		topics = topics[:3]
	}
	return fmt.Sprintf("Market sentiment is %s with %s volatility. Trending topics include: %s.",
		mc.MarketSentiment, mc.VolatilityLevel, strings.Join(topics, ", "))
}

// BuildMarketContext summarizes sentiment, topics, volatility and leading sectors.
func BuildMarketContext(in *types.ExecutionContext) types.MarketContext {
	mc := types.MarketContext{
		MarketSentiment: types.SentimentNeutral,
		TrendingTopics:  []string{},
		VolatilityLevel: "moderate",
		TopSectors:      []string{},
	}
	if in == nil {
		return mc
	}
	if w := in.WebSearch; w != nil {
		if w.MarketSentiment != "" {
			mc.MarketSentiment = w.MarketSentiment
		}
		mc.TrendingTopics = headStrings(w.TrendingTopics, 5)
	}
	if m := in.Market; m != nil {
		if m.VolatilityMetrics.VolatilityLevel != "" {
			mc.VolatilityLevel = m.VolatilityMetrics.VolatilityLevel
		}
		mc.TopSectors = headStrings(m.SectorAnalysis.TopPerformingSectors, 3)
	}
	return mc
}

func headStrings(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string{}, s...)
}

func direction(change float64) string {
	if change > 0 {
		return "up"
	}
	return "down"
}

// infoCache memoizes company info for the duration of one Execute call.
type infoCache struct {
	md   interfaces.MarketData
	hits map[string]types.CompanyInfo
	errs map[string]error
}

func newInfoCache(md interfaces.MarketData) *infoCache {
	return &infoCache{md: md, hits: map[string]types.CompanyInfo{}, errs: map[string]error{}}
}

func (c *infoCache) get(ctx context.Context, symbol string) (types.CompanyInfo, error) {
	if info, ok := c.hits[symbol]; ok {
		return info, nil
	}
	if err, ok := c.errs[symbol]; ok {
		return types.CompanyInfo{}, err
	}
	info, err := c.md.Info(ctx, symbol)
	if err != nil {
		c.errs[symbol] = err
		return types.CompanyInfo{}, err
	}
	c.hits[symbol] = info
	return info, nil
}
