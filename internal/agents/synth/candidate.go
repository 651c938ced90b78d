package synth

import (
	"sort"
	"strings"

	"stock-recommender/internal/types"
)

// Candidate is a symbol with the sub-scores the discovery stages attached to it.
// A nil sub-score means the stage had no opinion and contributes nothing.
type Candidate struct {
	Symbol        string
	Momentum      *float64
	Fundamental   *float64
	AnalystUpside *float64
	TopicMatch    bool
	Sentiment     *float64
}

// Weights caps the per-category contributions.
type Weights struct {
	MomentumCap    float64
	FundamentalCap float64
}

// DefaultWeights returns the standard caps.
func DefaultWeights() Weights {
	return Weights{MomentumCap: 4, FundamentalCap: 6}
}

// Composite sums the present sub-scores after capping.
func (c Candidate) Composite(w Weights) float64 {
	score := 0.0
	if c.Momentum != nil {
		score += min(*c.Momentum, w.MomentumCap)
	}
	if c.Fundamental != nil {
		score += min(*c.Fundamental, w.FundamentalCap)
	}
	if c.AnalystUpside != nil {
		score += AnalystPoints(*c.AnalystUpside)
	}
	if c.TopicMatch {
		score++
	}
	if c.Sentiment != nil {
		score += *c.Sentiment
	}
	return score
}

// AnalystPoints maps an implied upside percentage to 0-3 points.
func AnalystPoints(upside float64) float64 {
	switch {
	case upside > 30:
		return 3
	case upside > 20:
		return 2
	case upside > 10:
		return 1
	default:
		return 0
	}
}

// SentimentPoints is +1 for bullish, -1 for bearish and 0 otherwise.
func SentimentPoints(sentiment string) float64 {
	switch sentiment {
	case types.SentimentBullish:
		return 1
	case types.SentimentBearish:
		return -1
	default:
		return 0
	}
}

// Collect gathers every symbol any stage mentions, with the sub-scores found for it.
// The result is sorted by symbol.
func Collect(in *types.ExecutionContext) []*Candidate {
	if in == nil {
		return nil
	}
	bySymbol := make(map[string]*Candidate)
	get := func(sym string) *Candidate {
		sym = types.NormalizeSymbol(sym)
		if sym == "" {
			return nil
		}
		c, ok := bySymbol[sym]
		if !ok {
			c = &Candidate{Symbol: sym}
			bySymbol[sym] = c
		}
		return c
	}

	if w := in.WebSearch; w != nil {
		for _, s := range w.TrendingStocks {
			get(s)
		}
	}
	if m := in.Market; m != nil {
		for _, ms := range m.MomentumStocks {
			if c := get(ms.Symbol); c != nil {
				c.Momentum = types.Float(ms.MomentumScore)
			}
		}
	}
	if e := in.Earnings; e != nil {
		for _, u := range e.UpcomingEarnings {
			get(u.Symbol)
		}
		for _, sf := range e.FundamentalAnalysis.StrongFundamentalStocks {
			if c := get(sf.Symbol); c != nil {
				c.Fundamental = types.Float(sf.Score)
			}
		}
		for _, p := range e.AnalystRecommendations.StrongBuyStocks {
			if c := get(p.Symbol); c != nil {
				c.AnalystUpside = types.Float(p.UpsidePotential)
			}
		}
	}

	out := make([]*Candidate, 0, len(bySymbol))
	for _, c := range bySymbol {
		if in.WebSearch != nil {
			c.Sentiment = types.Float(SentimentPoints(in.WebSearch.MarketSentiment))
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// MatchesTopic reports whether any topic mentions the sector or the symbol, ignoring case.
// An empty or unknown sector never matches on its own.
func MatchesTopic(topics []string, symbol, sector string) bool {
	sym := strings.ToLower(symbol)
	sec := strings.ToLower(strings.TrimSpace(sector))
	if sec == "unknown" {
		sec = ""
	}
	for _, t := range topics {
		t = strings.ToLower(t)
		if sym != "" && strings.Contains(t, sym) {
			return true
		}
		if sec != "" && strings.Contains(t, sec) {
			return true
		}
	}
	return false
}

// Tier maps a composite score to a recommendation tier.
func Tier(score float64) types.Tier {
	switch {
	case score >= 8:
		return types.TierStrongBuy
	case score >= 6:
		return types.TierBuy
	case score >= 4:
		return types.TierModerateBuy
	default:
		return types.TierHold
	}
}

// Risk grades size and recent movement.
func Risk(marketCap, monthChange float64) types.RiskLevel {
	switch {
	case marketCap > 100e9:
		if monthChange < 10 && monthChange > -10 {
			return types.RiskLow
		}
		return types.RiskMedium
	case marketCap > 10e9:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}

// AIScore scales a composite score onto 0-100.
func AIScore(score float64) int {
	s := int(score * 10)
	switch {
	case s > 100:
		return 100
	case s < 0:
		return 0
	}
	return s
}
