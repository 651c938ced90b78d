package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"stock-recommender/internal/types"
)

// Static serves fixed data from memory. It backs the STATIC source and tests.
type Static struct {
	mu     sync.RWMutex
	infos  map[string]types.CompanyInfo
	bars   map[string][]types.Bar
	active []string
}

// NewStatic returns an empty provider.
func NewStatic() *Static {
	return &Static{
		infos: make(map[string]types.CompanyInfo),
		bars:  make(map[string][]types.Bar),
	}
}

// SetInfo registers company info under info.Symbol.
func (s *Static) SetInfo(info types.CompanyInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info.Symbol = types.NormalizeSymbol(info.Symbol)
	s.infos[info.Symbol] = info
}

// SetBars registers daily bars, oldest first.
func (s *Static) SetBars(symbol string, bars []types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[types.NormalizeSymbol(symbol)] = bars
}

// SetMostActive sets the screener answer.
func (s *Static) SetMostActive(symbols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = types.DedupeSymbols(symbols)
}

// History returns the trailing bars that fit the period.
func (s *Static) History(_ context.Context, symbol string, period types.Period) ([]types.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.bars[types.NormalizeSymbol(symbol)]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("history %s: %w", symbol, ErrNoData)
	}
	n := period.TradingDays()
	if n > len(bars) {
		n = len(bars)
	}
	return append([]types.Bar(nil), bars[len(bars)-n:]...), nil
}

func (s *Static) Info(_ context.Context, symbol string) (types.CompanyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.infos[types.NormalizeSymbol(symbol)]
	if !ok {
		return types.CompanyInfo{}, fmt.Errorf("info %s: %w", symbol, ErrNoData)
	}
	return info, nil
}

func (s *Static) MostActive(_ context.Context, count int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.active) == 0 {
		return nil, fmt.Errorf("most active: %w", ErrNoData)
	}
	if count <= 0 || count > len(s.active) {
		count = len(s.active)
	}
	return append([]string(nil), s.active[:count]...), nil
}

// TrendBars generates n daily bars ending at end, compounding dailyPct with a small
// deterministic wiggle so RSI stays below 100.
func TrendBars(start, dailyPct, volume float64, n int, end time.Time) []types.Bar {
	bars := make([]types.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		wiggle := 0.012 * math.Sin(float64(i)*1.7)
		price *= 1 + dailyPct/100 + wiggle
		day := end.AddDate(0, 0, i-n+1)
		bars[i] = types.Bar{
			Ts:    day.Unix(),
			Open:  price * 0.995,
			High:  price * 1.01,
			Low:   price * 0.99,
			Close: price,
			Vol:   volume * (1 + 0.1*math.Cos(float64(i))),
		}
	}
	return bars
}

type sampleListing struct {
	symbol, name, sector string
	capB, price, drift   float64
	pe, peg, roe, margin float64
	growth, de, target   float64
	key                  string
	earningsIn           int
}

// Sample returns a small deterministic US universe: the four major indices, VIX, SPY,
// the SPDR sector ETFs and a dozen large caps with fundamentals and earnings dates.
func Sample(now time.Time) *Static {
	s := NewStatic()
	const n = 70

	for _, idx := range []struct {
		symbol string
		level  float64
		drift  float64
	}{
		{"^GSPC", 5200, 0.12}, {"^DJI", 39000, 0.08}, {"^IXIC", 16500, 0.18}, {"^RUT", 2050, -0.05},
	} {
		s.SetBars(idx.symbol, TrendBars(idx.level, idx.drift, 4e9, n, now))
	}
	s.SetBars("^VIX", TrendBars(17, -0.1, 0, n, now))
	s.SetBars("SPY", TrendBars(520, 0.12, 7e7, n, now))

	for i, etf := range []string{"XLK", "XLV", "XLF", "XLY", "XLC", "XLI", "XLP", "XLE", "XLU", "XLRE", "XLB"} {
		s.SetBars(etf, TrendBars(80, 0.25-0.05*float64(i), 1e7, n, now))
	}

	listings := []sampleListing{
		{"AAPL", "Apple Inc.", "Technology", 3400, 190, 0.35, 29, 2.1, 1.5, 0.26, 0.06, 1.5, 230, "buy", 12},
		{"MSFT", "Microsoft Corporation", "Technology", 3100, 420, 0.30, 24, 0.9, 0.35, 0.36, 0.16, 0.3, 500, "strong_buy", 20},
		{"NVDA", "NVIDIA Corporation", "Technology", 2900, 118, 0.55, 22, 0.8, 0.9, 0.55, 1.2, 0.2, 150, "strong_buy", 35},
		{"AMZN", "Amazon.com, Inc.", "Consumer Cyclical", 1900, 180, 0.30, 40, 1.4, 0.22, 0.09, 0.11, 0.6, 215, "buy", 8},
		{"GOOGL", "Alphabet Inc.", "Communication Services", 2100, 170, 0.28, 22, 1.1, 0.30, 0.27, 0.14, 0.1, 205, "buy", 15},
		{"META", "Meta Platforms, Inc.", "Communication Services", 1300, 500, 0.32, 24, 1.0, 0.34, 0.35, 0.22, 0.2, 590, "buy", 18},
		{"JPM", "JPMorgan Chase & Co.", "Financial Services", 580, 200, 0.15, 12, 2.5, 0.16, 0.32, 0.08, 1.4, 215, "hold", 25},
		{"XOM", "Exxon Mobil Corporation", "Energy", 480, 115, -0.05, 13, 3.0, 0.15, 0.10, -0.02, 0.2, 125, "hold", 40},
		{"UNH", "UnitedHealth Group", "Healthcare", 460, 500, 0.10, 20, 1.3, 0.25, 0.06, 0.08, 0.7, 600, "buy", 28},
		{"TSLA", "Tesla, Inc.", "Consumer Cyclical", 700, 220, 0.45, 60, 3.5, 0.20, 0.13, 0.02, 0.1, 200, "hold", 6},
		{"COST", "Costco Wholesale", "Consumer Defensive", 360, 820, 0.12, 50, 4.0, 0.30, 0.03, 0.07, 0.4, 850, "buy", 50},
		{"LLY", "Eli Lilly and Company", "Healthcare", 800, 850, 0.40, 60, 1.2, 0.50, 0.21, 0.26, 1.8, 1000, "strong_buy", 3},
	}

	var active []string
	for _, l := range listings {
		earnings := now.AddDate(0, 0, l.earningsIn)
		s.SetInfo(types.CompanyInfo{
			Symbol:            l.symbol,
			LongName:          l.name,
			Sector:            l.sector,
			MarketCap:         l.capB * 1e9,
			CurrentPrice:      l.price,
			TrailingPE:        types.Float(l.pe),
			PEGRatio:          types.Float(l.peg),
			ReturnOnEquity:    types.Float(l.roe),
			ProfitMargins:     types.Float(l.margin),
			RevenueGrowth:     types.Float(l.growth),
			EarningsGrowth:    types.Float(l.growth * 1.5),
			DebtToEquity:      types.Float(l.de),
			TargetMeanPrice:   types.Float(l.target),
			RecommendationKey: l.key,
			EarningsDate:      &earnings,
		})
		s.SetBars(l.symbol, TrendBars(l.price/math.Pow(1+l.drift/100, n), l.drift, volumeFor(l.symbol), n, now))
		active = append(active, l.symbol)
	}
	s.SetMostActive(active...)
	return s
}

// volumeFor gives each symbol a stable share volume between 5M and 55M.
func volumeFor(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return 5e6 + float64(h.Sum32()%50)*1e6
}
