// Package earnings is the fundamentals discovery stage: earnings dates,
// fundamental ratios, earnings growth and analyst targets for a watchlist.
package earnings

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/types"
)

const Name = "earnings_analysis"

const (
	minWatchlist       = 5
	watchlistCap       = 15
	minWatchlistCap    = 5_000_000_000
	discoveryCap       = 10
	minDiscoveryCap    = 1_000_000_000
	lookaheadDays      = 30
	trendSymbols       = 10
	highEarningsGrowth = 0.15
	strongBuyUpside    = 15
	highTargetUpside   = 25
	topN               = 10
)

// CalendarSource lists candidate tickers with upcoming earnings.
type CalendarSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Agent analyzes earnings and fundamentals for stocks surfaced by the other stages.
type Agent struct {
	md       interfaces.MarketData
	calendar CalendarSource
	now      func() time.Time
}

var _ interfaces.Agent = (*Agent)(nil)

// New creates the stage. calendar may be nil to disable independent discovery.
func New(md interfaces.MarketData, calendar CalendarSource) *Agent {
	return &Agent{md: md, calendar: calendar, now: time.Now}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Description() string {
	return "Analyzes earnings calendar and fundamental metrics"
}

func (a *Agent) Namespace() types.Namespace { return types.NamespaceEarnings }

type listing struct {
	symbol string
	info   types.CompanyInfo
}

// Execute builds the watchlist once and runs every analysis over it.
func (a *Agent) Execute(ctx context.Context, in *types.ExecutionContext) (*types.ExecutionContext, error) {
	logger.Info(ctx, "Starting earnings and fundamental analysis")

	watch := a.watchlist(ctx, in)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := a.now()
	res := &types.EarningsAnalysis{
		Watchlist:              make([]string, 0, len(watch)),
		UpcomingEarnings:       upcoming(watch, now),
		FundamentalAnalysis:    fundamentals(watch),
		EarningsInsights:       trends(watch),
		AnalystRecommendations: analysts(watch),
		AnalysisTimestamp:      now,
	}
	for _, l := range watch {
		res.Watchlist = append(res.Watchlist, l.symbol)
	}

	logger.Info(ctx, "Earnings analysis completed",
		"watchlist", len(watch),
		"upcoming", len(res.UpcomingEarnings),
		"strong_fundamentals", len(res.FundamentalAnalysis.StrongFundamentalStocks),
		"strong_buys", len(res.AnalystRecommendations.StrongBuyStocks),
	)

	out := types.NewExecutionContext()
	out.Earnings = res
	return out, nil
}

// watchlist merges upstream candidates, tops them up from the calendar when there
// are too few, and keeps large caps only. Info is fetched once per symbol.
func (a *Agent) watchlist(ctx context.Context, in *types.ExecutionContext) []listing {
	var candidates []string
	if in != nil && in.Market != nil {
		for _, m := range in.Market.MomentumStocks {
			candidates = append(candidates, m.Symbol)
		}
		if n := len(in.Market.MomentumStocks); n > 0 {
			logger.Info(ctx, "Using stocks from market analysis agent", "count", n)
		}
	}
	if in != nil && in.WebSearch != nil && len(in.WebSearch.TrendingStocks) > 0 {
		candidates = append(candidates, in.WebSearch.TrendingStocks...)
		logger.Info(ctx, "Using stocks from web search agent", "count", len(in.WebSearch.TrendingStocks))
	}
	if len(candidates) < minWatchlist {
		logger.Info(ctx, "Performing independent earnings watchlist discovery", "have", len(candidates))
		candidates = append(candidates, a.discover(ctx)...)
	}

	var out []listing
	for _, sym := range types.DedupeSymbols(candidates) {
		if len(out) >= watchlistCap || ctx.Err() != nil {
			break
		}
		info, err := a.md.Info(ctx, sym)
		if err != nil {
			logger.Debug(ctx, "Skipping watchlist candidate", "symbol", sym, "error", err)
			continue
		}
		if info.MarketCap > minWatchlistCap {
			out = append(out, listing{symbol: sym, info: info})
		}
	}

	if len(out) == 0 {
		logger.Warn(ctx, "No stocks discovered for earnings analysis")
	} else {
		logger.Info(ctx, "Earnings analysis watchlist", "count", len(out))
	}
	return out
}

func (a *Agent) discover(ctx context.Context) []string {
	if a.calendar == nil {
		return nil
	}
	tokens, err := a.calendar.Symbols(ctx)
	if err != nil {
		logger.Warn(ctx, "Earnings calendar discovery failed", "error", err)
		return nil
	}

	var found []string
	for _, sym := range tokens {
		if len(found) >= discoveryCap || ctx.Err() != nil {
			break
		}
		info, err := a.md.Info(ctx, sym)
		if err != nil {
			continue
		}
		if info.MarketCap > minDiscoveryCap {
			found = append(found, sym)
		}
	}
	logger.Info(ctx, "Found stocks from earnings calendar", "count", len(found), "tokens", len(tokens))
	return found
}

func upcoming(watch []listing, now time.Time) []types.UpcomingEarning {
	out := []types.UpcomingEarning{}
	for _, l := range watch {
		if l.info.EarningsDate == nil {
			continue
		}
		days := int(math.Floor(l.info.EarningsDate.Sub(now).Hours() / 24))
		if days < 0 || days > lookaheadDays {
			continue
		}
		out = append(out, types.UpcomingEarning{
			Symbol:            l.symbol,
			CompanyName:       l.info.Name(),
			EarningsDate:      *l.info.EarningsDate,
			DaysUntilEarnings: days,
			MarketCap:         l.info.MarketCap,
			Sector:            l.info.SectorOrUnknown(),
			CurrentPrice:      l.info.CurrentPrice,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysUntilEarnings < out[j].DaysUntilEarnings })
	return out
}

func fundamentals(watch []listing) types.FundamentalAnalysis {
	res := types.FundamentalAnalysis{
		DetailedFundamentals:    make(map[string]types.Fundamentals, len(watch)),
		StrongFundamentalStocks: []types.StrongFundamental{},
	}
	for _, l := range watch {
		f := FundamentalsOf(l.info)
		res.DetailedFundamentals[l.symbol] = f
		if f.FundamentalScore >= StrongScore {
			res.StrongFundamentalStocks = append(res.StrongFundamentalStocks, types.StrongFundamental{
				Symbol:     l.symbol,
				Score:      f.FundamentalScore,
				Highlights: Highlights(f),
			})
		}
	}
	sort.SliceStable(res.StrongFundamentalStocks, func(i, j int) bool {
		return res.StrongFundamentalStocks[i].Score > res.StrongFundamentalStocks[j].Score
	})
	if len(res.StrongFundamentalStocks) > topN {
		res.StrongFundamentalStocks = res.StrongFundamentalStocks[:topN]
	}
	return res
}

func trends(watch []listing) types.EarningsInsights {
	res := types.EarningsInsights{HighEarningsGrowth: []types.EarningsGrowth{}}
	for i, l := range watch {
		if i >= trendSymbols {
			break
		}
		if g := l.info.EarningsGrowth; g != nil && *g > highEarningsGrowth {
			res.HighEarningsGrowth = append(res.HighEarningsGrowth, types.EarningsGrowth{
				Symbol:          l.symbol,
				EarningsGrowth:  *g,
				QuarterlyGrowth: l.info.QuarterlyGrowth,
			})
		}
	}
	return res
}

func analysts(watch []listing) types.AnalystRecommendations {
	res := types.AnalystRecommendations{
		StrongBuyStocks:  []types.AnalystPick{},
		HighPriceTargets: []types.AnalystPick{},
	}
	for _, l := range watch {
		upside, ok := Upside(l.info)
		if !ok {
			continue
		}
		pick := types.AnalystPick{
			Symbol:          l.symbol,
			TargetPrice:     *l.info.TargetMeanPrice,
			CurrentPrice:    l.info.CurrentPrice,
			UpsidePotential: upside,
		}
		key := strings.ToLower(l.info.RecommendationKey)
		if (key == "strong_buy" || key == "buy") && upside > strongBuyUpside {
			withKey := pick
			withKey.Recommendation = key
			res.StrongBuyStocks = append(res.StrongBuyStocks, withKey)
		}
		if upside > highTargetUpside {
			res.HighPriceTargets = append(res.HighPriceTargets, pick)
		}
	}
	res.StrongBuyStocks = topByUpside(res.StrongBuyStocks)
	res.HighPriceTargets = topByUpside(res.HighPriceTargets)
	return res
}

func topByUpside(picks []types.AnalystPick) []types.AnalystPick {
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].UpsidePotential > picks[j].UpsidePotential })
	if len(picks) > topN {
		picks = picks[:topN]
	}
	return picks
}
