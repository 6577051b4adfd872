package cache

import (
	"context"
	"time"

	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
)

type noopCache struct{}

// NewNoopCache returns a cache that never stores anything. It is used when
// Redis is not configured.
func NewNoopCache() domainRepo.Cache {
	return noopCache{}
}

func (noopCache) Get(context.Context, string) ([]byte, error) { return nil, nil }

func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, ...string) error { return nil }
