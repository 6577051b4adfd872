package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey retrieves an idempotency key by its key string and user ID
	GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error)
	// Claim inserts the key unless a live row for the same owner and key
	// exists. An expired row is replaced. It reports whether the caller now
	// holds the key.
	Claim(ctx context.Context, ikey *entity.IdempotencyKey) (bool, error)
	// Complete stores the response of a claimed key
	Complete(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Release drops a claimed key that has no response worth replaying
	Release(ctx context.Context, key string, userID uuid.UUID) error
	// DeleteExpired removes expired idempotency keys and reports how many
	DeleteExpired(ctx context.Context) (int64, error)
}
