package interfaces

import (
	"context"

	"stock-recommender/internal/types"
)

// NewsSource returns recent market news. An empty result is not an error.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]types.Article, error)
}
