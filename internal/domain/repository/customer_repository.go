package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/pkg/pagination"
)

// CustomerFilter narrows customer listings
type CustomerFilter struct {
	Search   string
	Category string
	HasDue   *bool
}

// CustomerSummary aggregates the owner's customer balances
type CustomerSummary struct {
	TotalCustomers   int64
	TotalOutstanding decimal.Decimal
	WithOutstanding  int64
}

// CustomerRepository defines the interface for customer data operations.
// Every method is scoped to the owner carried by ctx.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
	// GetForUpdate reads the customer and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
	GetByMobile(ctx context.Context, mobile string) (*entity.Customer, error)
	// Update saves descriptive fields only; balance fields go through UpdateBalance.
	Update(ctx context.Context, customer *entity.Customer) error
	// UpdateBalance writes a new due if the stored version still equals
	// expectedVersion and bumps the version. Returns ErrConcurrentUpdate otherwise.
	UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, totalDue decimal.Decimal, lastTransactionDate *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter CustomerFilter, params *pagination.PaginationParams) ([]entity.Customer, int64, error)
	// ListWithCursor fetches limit+1 rows so callers can detect a next page
	ListWithCursor(ctx context.Context, filter CustomerFilter, params *pagination.CursorParams) ([]entity.Customer, error)
	Summary(ctx context.Context) (*CustomerSummary, error)
}
