package interfaces

import (
	"context"

	"stock-recommender/internal/types"
)

// MarketData supplies price history and company metadata. Calls are best-effort and may fail per symbol.
type MarketData interface {
	History(ctx context.Context, symbol string, period types.Period) ([]types.Bar, error)
	Info(ctx context.Context, symbol string) (types.CompanyInfo, error)
	MostActive(ctx context.Context, count int) ([]string, error)
}
