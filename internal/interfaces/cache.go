package interfaces

import (
	"context"
	"time"
)

// Cache stores opaque payloads with a time to live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
