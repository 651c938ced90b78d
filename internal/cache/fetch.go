package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"stock-recommender/internal/interfaces"
	"stock-recommender/internal/logger"
)

// GetOrFetch returns the cached JSON value for key, or calls fetch and caches its result.
// A nil cache always fetches. Cache write failures are logged, not returned.
func GetOrFetch[T any](ctx context.Context, c interfaces.Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if c != nil {
		if raw, ok := c.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			_ = c.Delete(ctx, key)
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	if c != nil {
		if raw, err := json.Marshal(v); err == nil {
			if err := c.Set(ctx, key, raw, ttl); err != nil {
				logger.Warn(ctx, "Failed to write cache entry", "key", key, "error", err)
			}
		}
	}
	return v, nil
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
