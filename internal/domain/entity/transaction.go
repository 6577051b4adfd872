package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sangkips/khata-api/internal/domain/enum"
	"github.com/sangkips/khata-api/internal/domain/ledger"
)

// Transaction is a single ledger movement against a customer
type Transaction struct {
	ID            uuid.UUID              `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID              `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"customer_id"`
	Kind          enum.TransactionKind   `gorm:"size:20;not null;index" json:"kind"`
	Amount        decimal.Decimal        `gorm:"type:numeric(14,2);not null" json:"-"`
	Date          time.Time              `gorm:"type:date;not null;index" json:"-"`
	Status        enum.TransactionStatus `gorm:"size:20;not null;index" json:"status"`
	Description   *string                `gorm:"type:text" json:"description,omitempty"`
	PaymentMethod *string                `gorm:"size:50" json:"payment_method,omitempty"`
	Notes         *string                `gorm:"type:text" json:"notes,omitempty"`
	SettledAt     *time.Time             `json:"settled_at,omitempty"`
	// Sequence is the customer version this transaction's balance write
	// produced. It orders transactions recorded in the same instant.
	Sequence      int64                  `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time              `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`

	// Relationships
	Customer Customer `gorm:"foreignKey:CustomerID" json:"-"`
}

// MarshalJSON renders money as a number and dates as YYYY-MM-DD
func (t Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Alias
		Amount float64 `json:"amount"`
		Date   string  `json:"date"`
	}{
		Alias:  Alias(t),
		Amount: t.Amount.InexactFloat64(),
		Date:   t.Date.Format(DateLayout),
	})
}

// IsOpen reports whether the transaction can still change status
func (t *Transaction) IsOpen() bool {
	return t.Status == enum.TransactionStatusPending
}

// LedgerEntry projects the transaction onto the input of ledger.Replay
func (t *Transaction) LedgerEntry() ledger.Entry {
	return ledger.Entry{
		ID:         t.ID.String(),
		Kind:       t.Kind,
		Amount:     t.Amount,
		Status:     t.Status,
		RecordedAt: t.CreatedAt,
		SettledAt:  t.SettledAt,
	}
}

// BeforeCreate generates a UUID before creating a new transaction
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// BusinessDate truncates t to a UTC calendar date
func BusinessDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseBusinessDate parses a YYYY-MM-DD date
func ParseBusinessDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
