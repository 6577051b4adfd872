package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	"github.com/sangkips/khata-api/pkg/pagination"
)

// TransactionFilter narrows transaction listings. Dates are inclusive.
type TransactionFilter struct {
	CustomerID *uuid.UUID
	Kind       *enum.TransactionKind
	Statuses   []enum.TransactionStatus
	StartDate  *time.Time
	EndDate    *time.Time
}

// TransactionTotal is the result of summing amounts over a filter
type TransactionTotal struct {
	Total decimal.Decimal
	Count int64
}

// TransactionRepository defines the interface for transaction data operations.
// Every method is scoped to the owner carried by ctx.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)
	// UpdateDetails saves description, payment method and notes.
	UpdateDetails(ctx context.Context, tx *entity.Transaction) error
	// UpdateStatus moves the transaction from one status to another if it is
	// still in from. Returns ErrConcurrentUpdate otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enum.TransactionStatus, settledAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error
	List(ctx context.Context, filter TransactionFilter, params *pagination.PaginationParams) ([]entity.Transaction, int64, error)
	// History returns every transaction of the customer in recording order.
	History(ctx context.Context, customerID uuid.UUID) ([]entity.Transaction, error)
	Recent(ctx context.Context, limit int) ([]entity.Transaction, error)
	Sum(ctx context.Context, filter TransactionFilter) (*TransactionTotal, error)
}
