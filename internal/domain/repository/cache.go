package repository

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store for derived read models
type Cache interface {
	// Get returns (nil, nil) on a miss
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
