// Package market is the technical analysis discovery stage: indices, sectors,
// volatility, market volume and per-symbol momentum.
package market

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/ta"
	"stock-recommender/internal/types"
)

const Name = "market_analysis"

var (
	Indices = []string{"^GSPC", "^DJI", "^IXIC", "^RUT"}

	// SectorETFs maps the SPDR sector funds to their sector, in reporting order.
	SectorETFs = []struct{ Sector, Symbol string }{
		{"Technology", "XLK"},
		{"Healthcare", "XLV"},
		{"Financials", "XLF"},
		{"Consumer Discretionary", "XLY"},
		{"Communication Services", "XLC"},
		{"Industrials", "XLI"},
		{"Consumer Staples", "XLP"},
		{"Energy", "XLE"},
		{"Utilities", "XLU"},
		{"Real Estate", "XLRE"},
		{"Materials", "XLB"},
	}
)

const (
	volatilitySymbol = "^VIX"
	volumeSymbol     = "SPY"

	activeTarget      = 10
	activeCap         = 15
	discoveryPool     = 25
	discoveryCap      = 10
	minDiscoveryCap   = 500_000_000
	minDiscoveryVol   = 50_000
	momentumMinBars   = 50
	momentumKeepScore = 3
	momentumTopN      = 10
	fetchConcurrency  = 4
)

// Agent computes market-wide context and momentum candidates.
type Agent struct {
	md  interfaces.MarketData
	now func() time.Time
}

var _ interfaces.Agent = (*Agent)(nil)

func New(md interfaces.MarketData) *Agent {
	return &Agent{md: md, now: time.Now}
}

func (a *Agent) Name() string { return Name }

func (a *Agent) Description() string {
	return "Analyzes market trends and technical indicators"
}

func (a *Agent) Namespace() types.Namespace { return types.NamespaceMarket }

// Execute never fails on a single bad symbol; only cancellation is an error.
func (a *Agent) Execute(ctx context.Context, in *types.ExecutionContext) (*types.ExecutionContext, error) {
	logger.Info(ctx, "Starting market trend analysis")

	trends := a.analyzeIndices(ctx)
	sectors := a.analyzeSectors(ctx)
	vol := a.volatility(ctx)
	active := a.activeStocks(ctx, in)
	momentum := a.momentumStocks(ctx, active)
	volume := a.volumeAnalysis(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := types.NewExecutionContext()
	out.Market = &types.MarketAnalysis{
		MarketTrends:      trends,
		SectorAnalysis:    sectors,
		VolatilityMetrics: vol,
		ActiveStocks:      active,
		MomentumStocks:    momentum,
		VolumeAnalysis:    volume,
		AnalysisTimestamp: a.now(),
	}
	logger.Info(ctx, "Market analysis completed",
		"indices", len(trends),
		"sectors", len(sectors.SectorPerformance),
		"active", len(active),
		"momentum", len(momentum),
		"volatility", vol.VolatilityLevel,
	)
	return out, nil
}

func (a *Agent) analyzeIndices(ctx context.Context) map[string]types.IndexSnapshot {
	out := make(map[string]types.IndexSnapshot, len(Indices))
	for _, sym := range Indices {
		bars, err := a.md.History(ctx, sym, types.Period3M)
		if err != nil || len(bars) < 2 {
			logger.Warn(ctx, "Failed to analyze index", "symbol", sym, "bars", len(bars), "error", err)
			continue
		}
		closes := types.Closes(bars)
		price := ta.Last(closes)
		sma20, sma50 := ta.SMA(closes, 20), ta.SMA(closes, 50)
		trend := types.SentimentBearish
		if price > sma20 && sma20 > sma50 {
			trend = types.SentimentBullish
		}
		out[sym] = types.IndexSnapshot{
			CurrentPrice:  price,
			ChangePercent: finite(ta.PctChange(closes, 2)),
			SMA20:         finite(sma20),
			SMA50:         finite(sma50),
			RSI:           finiteOr(ta.RSI(closes, 14), 50),
			Trend:         trend,
		}
	}
	return out
}

func (a *Agent) analyzeSectors(ctx context.Context) types.SectorAnalysis {
	var perf []types.SectorPerformance
	for _, etf := range SectorETFs {
		bars, err := a.md.History(ctx, etf.Symbol, types.Period1M)
		if err != nil || len(bars) == 0 {
			logger.Warn(ctx, "Failed to analyze sector", "sector", etf.Sector, "symbol", etf.Symbol, "error", err)
			continue
		}
		closes := types.Closes(bars)
		perf = append(perf, types.SectorPerformance{
			Sector:       etf.Sector,
			Symbol:       etf.Symbol,
			MonthReturn:  finite(ta.PctChange(closes, len(closes))),
			WeekReturn:   finite(ta.PctChange(closes, 5)),
			CurrentPrice: ta.Last(closes),
		})
	}

	sort.SliceStable(perf, func(i, j int) bool { return perf[i].MonthReturn > perf[j].MonthReturn })

	res := types.SectorAnalysis{SectorPerformance: perf}
	for i, p := range perf {
		if i < 3 {
			res.TopPerformingSectors = append(res.TopPerformingSectors, p.Sector)
		}
		if i >= len(perf)-3 {
			res.WorstPerformingSectors = append(res.WorstPerformingSectors, p.Sector)
		}
	}
	return res
}

func (a *Agent) volatility(ctx context.Context) types.Volatility {
	bars, err := a.md.History(ctx, volatilitySymbol, types.Period1M)
	if err != nil || len(bars) == 0 {
		logger.Warn(ctx, "Volatility calculation failed", "error", err)
		return types.Volatility{VolatilityLevel: "moderate"}
	}
	closes := types.Closes(bars)
	current := ta.Last(closes)
	return types.Volatility{
		VIXCurrent:      types.Float(current),
		VIXAverage:      types.Float(ta.Mean(closes)),
		VolatilityLevel: VolatilityLevel(current),
		MarketFearLevel: FearLevel(current),
	}
}

// VolatilityLevel buckets a VIX reading.
func VolatilityLevel(vix float64) string {
	switch {
	case vix < 20:
		return "low"
	case vix > 30:
		return "high"
	default:
		return "moderate"
	}
}

func FearLevel(vix float64) string {
	if vix > 25 {
		return "high"
	}
	return "low"
}

func (a *Agent) volumeAnalysis(ctx context.Context) types.VolumeAnalysis {
	bars, err := a.md.History(ctx, volumeSymbol, types.Period1M)
	if err != nil || len(bars) == 0 {
		logger.Warn(ctx, "Volume analysis failed", "error", err)
		return types.VolumeAnalysis{VolumeTrend: "stable"}
	}
	vols := types.Volumes(bars)
	avg := ta.Mean(vols)
	recent := ta.SMA(vols, min(5, len(vols)))
	if avg == 0 {
		return types.VolumeAnalysis{VolumeTrend: "stable"}
	}
	return types.VolumeAnalysis{
		AverageVolume: avg,
		RecentVolume:  recent,
		VolumeTrend:   VolumeTrend(recent, avg),
		VolumeRatio:   recent / avg,
	}
}

// VolumeTrend compares recent volume against its average.
func VolumeTrend(recent, avg float64) string {
	switch {
	case recent > avg*1.1:
		return "increasing"
	case recent < avg*0.9:
		return "decreasing"
	default:
		return "stable"
	}
}

// activeStocks prefers the web stage's trending stocks and tops them up from the screener.
func (a *Agent) activeStocks(ctx context.Context, in *types.ExecutionContext) []string {
	var active []string
	if in != nil && in.WebSearch != nil && len(in.WebSearch.TrendingStocks) > 0 {
		logger.Info(ctx, "Using stocks from web search agent", "count", len(in.WebSearch.TrendingStocks))
		active = append(active, in.WebSearch.TrendingStocks...)
	}
	if len(active) < activeTarget {
		logger.Info(ctx, "Performing independent market discovery", "have", len(active))
		active = append(active, a.discover(ctx)...)
	}
	active = types.DedupeSymbols(active)
	if len(active) > activeCap {
		active = active[:activeCap]
	}
	if len(active) == 0 {
		logger.Warn(ctx, "No active stocks discovered, market analysis may be limited")
	}
	return active
}

func (a *Agent) discover(ctx context.Context) []string {
	candidates, err := a.md.MostActive(ctx, discoveryPool)
	if err != nil {
		logger.Warn(ctx, "Most-active screener failed", "error", err)
		return nil
	}

	var found []string
	for _, sym := range candidates {
		if len(found) >= discoveryCap || ctx.Err() != nil {
			break
		}
		bars, err := a.md.History(ctx, sym, types.Period5D)
		if err != nil || len(bars) <= 1 {
			continue
		}
		info, err := a.md.Info(ctx, sym)
		if err != nil {
			continue
		}
		if info.MarketCap > minDiscoveryCap && bars[len(bars)-1].Vol > minDiscoveryVol {
			found = append(found, sym)
		}
	}
	logger.Info(ctx, "Volume pattern analysis found active stocks", "count", len(found), "screened", len(candidates))
	return found
}

func (a *Agent) momentumStocks(ctx context.Context, symbols []string) []types.MomentumStock {
	results := make([]*types.MomentumStock, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			bars, err := a.md.History(gctx, sym, types.Period3M)
			if err != nil {
				logger.Warn(gctx, "Failed to analyze momentum", "symbol", sym, "error", err)
				return nil
			}
			if m, ok := Momentum(sym, bars); ok && m.MomentumScore >= momentumKeepScore {
				results[i] = &m
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []types.MomentumStock
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MomentumScore > out[j].MomentumScore })
	if len(out) > momentumTopN {
		out = out[:momentumTopN]
	}
	return out
}

// Momentum scores one symbol's daily bars. ok is false when there is not enough history.
func Momentum(symbol string, bars []types.Bar) (types.MomentumStock, bool) {
	if len(bars) < momentumMinBars {
		return types.MomentumStock{}, false
	}
	closes, vols := types.Closes(bars), types.Volumes(bars)

	price := ta.Last(closes)
	sma20, sma50 := ta.SMA(closes, 20), ta.SMA(closes, 50)
	priceMomentum := ta.PctChange(closes, 20)
	volumeRatio := ta.VolumeRatio(vols, 5, 20)
	rsi := ta.RSI(closes, 14)

	score := 0.0
	if price > sma20 && sma20 > sma50 {
		score += 2
	}
	if priceMomentum > 5 {
		score += 2
	}
	if volumeRatio > 1.2 {
		score++
	}
	if rsi > 40 && rsi < 70 {
		score++
	}

	return types.MomentumStock{
		Symbol:        symbol,
		MomentumScore: score,
		PriceMomentum: finite(priceMomentum),
		VolumeRatio:   finite(volumeRatio),
		RSI:           finiteOr(rsi, 50),
		CurrentPrice:  price,
	}, true
}

func finite(v float64) float64 { return finiteOr(v, 0) }

// finiteOr keeps NaN and Inf out of the JSON payload.
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
