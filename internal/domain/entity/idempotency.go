package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Idempotency key states. A key is claimed as processing before the handler
// runs and completed once its response is stored.
const (
	IdempotencyStatusProcessing = "processing"
	IdempotencyStatusCompleted  = "completed"
)

// IdempotencyKey stores the response of a processed write so a retried
// request with the same Idempotency-Key header replays it instead of
// recording the transaction twice.
type IdempotencyKey struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Key          string    `gorm:"column:idempotency_key;size:255;not null;uniqueIndex:idx_idempotency_owner_key,priority:2"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_idempotency_owner_key,priority:1"`
	Endpoint     string    `gorm:"size:255;not null"` // e.g. "POST /api/v1/transactions"
	RequestHash  string    `gorm:"size:64"`           // SHA256 of the request body
	Status       string    `gorm:"size:20;not null;default:completed"`
	ResponseCode int       `gorm:"not null"`
	ResponseBody string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

// BeforeCreate generates a UUID before storing the key
func (i *IdempotencyKey) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for IdempotencyKey
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// IsProcessing reports whether the request holding the key is still running
func (i *IdempotencyKey) IsProcessing() bool {
	return i.Status == IdempotencyStatusProcessing
}

// IsExpired checks if the idempotency key has expired
func (i *IdempotencyKey) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}
