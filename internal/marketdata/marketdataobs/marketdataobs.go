package marketdataobs

import (
	"context"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
	"stock-recommender/internal/trace"
	"stock-recommender/internal/types"
)

// observableMarketData wraps a MarketData provider with observability (logging & tracing)
type observableMarketData struct {
	md interfaces.MarketData
}

// Compile-time interface check
var _ interfaces.MarketData = (*observableMarketData)(nil)

// Wrap wraps a market data provider with observability middleware
func Wrap(md interfaces.MarketData) interfaces.MarketData {
	return &observableMarketData{md: md}
}

// History fetches price history with observability
func (o *observableMarketData) History(ctx context.Context, symbol string, period types.Period) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.History")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching price history", "symbol", symbol, "period", string(period))

	bars, err := o.md.History(ctx, symbol, period)
	if err != nil {
		// per-symbol misses are routine, keep them at warn
		logger.WarnSkip(ctx, 1, "Failed to fetch price history", "symbol", symbol, "period", string(period), "error", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Price history fetched", "symbol", symbol, "bars", len(bars))
	return bars, nil
}

// Info fetches company info with observability
func (o *observableMarketData) Info(ctx context.Context, symbol string) (types.CompanyInfo, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.Info")
	defer span.End()

	info, err := o.md.Info(ctx, symbol)
	if err != nil {
		logger.WarnSkip(ctx, 1, "Failed to fetch company info", "symbol", symbol, "error", err)
		return types.CompanyInfo{}, err
	}

	logger.DebugSkip(ctx, 1, "Company info fetched",
		"symbol", symbol,
		"sector", info.Sector,
		"market_cap", info.MarketCap,
	)
	return info, nil
}

// MostActive runs the most-active screener with observability
func (o *observableMarketData) MostActive(ctx context.Context, count int) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.MostActive")
	defer span.End()

	symbols, err := o.md.MostActive(ctx, count)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Most-active screener failed", err, "count", count)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Most-active screener returned", "symbols", len(symbols))
	return symbols, nil
}
