package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCustomerCategory is assigned when a customer is created without one
const DefaultCustomerCategory = "Regular"

// DateLayout is the wire format of business dates
const DateLayout = "2006-01-02"

// Customer is a person the shop extends credit to
type Customer struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID              uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_customers_owner_mobile,priority:1" json:"user_id"`
	Name                string          `gorm:"size:255;not null" json:"name"`
	Mobile              string          `gorm:"size:20;not null;uniqueIndex:idx_customers_owner_mobile,priority:2" json:"mobile"`
	Address             *string         `gorm:"type:text" json:"address,omitempty"`
	Category            string          `gorm:"size:50;not null" json:"category"`
	Notes               *string         `gorm:"type:text" json:"notes,omitempty"`
	TotalDue            decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"-"`
	LastTransactionDate *time.Time      `gorm:"type:date" json:"-"`
	IsActive            bool            `gorm:"not null" json:"is_active"`
	Version             int64           `gorm:"not null;default:0" json:"version"`
	CreatedAt           time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Relationships
	User         User          `gorm:"foreignKey:UserID" json:"-"`
	Transactions []Transaction `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
}

// MarshalJSON renders money as a number and dates as YYYY-MM-DD
func (c Customer) MarshalJSON() ([]byte, error) {
	type Alias Customer
	var lastDate *string
	if c.LastTransactionDate != nil {
		s := c.LastTransactionDate.Format(DateLayout)
		lastDate = &s
	}
	return json.Marshal(&struct {
		Alias
		TotalDue            float64 `json:"total_due"`
		LastTransactionDate *string `json:"last_transaction_date"`
	}{
		Alias:               Alias(c),
		TotalDue:            c.TotalDue.InexactFloat64(),
		LastTransactionDate: lastDate,
	})
}

// HasDue reports whether the customer owes anything
func (c *Customer) HasDue() bool {
	return c.TotalDue.IsPositive()
}

// BeforeCreate generates a UUID before creating a new customer
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}
