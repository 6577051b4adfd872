package request

import (
	"time"

	"github.com/sangkips/khata-api/internal/domain/entity"
)

// CreateTransactionRequest represents a ledger entry. Kind is one of
// Credit, Payment or Adjustment; date is YYYY-MM-DD and defaults to today.
type CreateTransactionRequest struct {
	CustomerID    string  `json:"customer_id"`
	Kind          string  `json:"kind" binding:"required"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Description   *string `json:"description" binding:"omitempty,max=500"`
	PaymentMethod *string `json:"payment_method" binding:"omitempty,max=50"`
	Notes         *string `json:"notes"`
}

// PaymentRequest is the body of the payment and credit shortcuts
type PaymentRequest struct {
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Description   *string `json:"description" binding:"omitempty,max=500"`
	PaymentMethod *string `json:"payment_method" binding:"omitempty,max=50"`
	Notes         *string `json:"notes"`
}

// UpdateTransactionRequest edits descriptive fields only
type UpdateTransactionRequest struct {
	Description   *string `json:"description" binding:"omitempty,max=500"`
	PaymentMethod *string `json:"payment_method" binding:"omitempty,max=50"`
	Notes         *string `json:"notes"`
}

// StatusRequest moves a transaction to a new status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransactionListQuery binds the transaction list filters. The camelCase
// names are accepted for older clients.
type TransactionListQuery struct {
	CustomerID       string `form:"customer_id"`
	CustomerIDLegacy string `form:"customerId"`
	Kind             string `form:"kind"`
	Type             string `form:"type"`
	Status           string `form:"status"`
	StartDate        string `form:"start_date"`
	EndDate          string `form:"end_date"`
}

// ParseDate parses an optional YYYY-MM-DD value
func ParseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(entity.DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
