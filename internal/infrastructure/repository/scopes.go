package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ctxKey string

const (
	// OwnerIDKey is the context key for the shop owner the request acts for
	OwnerIDKey ctxKey = "owner_id"
	txKey      ctxKey = "trx"
)

// OwnerScope returns a GORM scope that filters by owner.
// It should be applied to every query on owner-scoped tables.
func OwnerScope(ctx context.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		ownerID, ok := GetOwnerID(ctx)
		if !ok {
			// no owner, no rows
			return db.Where("1 = 0")
		}
		return db.Where("user_id = ?", ownerID)
	}
}

// WithOwner adds the owner ID to context
func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// GetOwnerID extracts the owner ID from context
func GetOwnerID(ctx context.Context) (uuid.UUID, bool) {
	ownerID, ok := ctx.Value(OwnerIDKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		return uuid.Nil, false
	}
	return ownerID, true
}

// conn returns the transaction bound to ctx by WithinTransaction, or db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
