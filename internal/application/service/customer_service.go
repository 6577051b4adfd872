package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/ledger"
	"github.com/sangkips/khata-api/internal/domain/repository"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/logger"
	"github.com/sangkips/khata-api/pkg/metrics"
	"github.com/sangkips/khata-api/pkg/pagination"
)

// CustomerService handles customer-related operations
type CustomerService struct {
	customerRepo repository.CustomerRepository
	txRepo       repository.TransactionRepository
	transactor   repository.Transactor
	cache        repository.Cache
	metrics      *metrics.Metrics
	balance      *balanceWriter
}

// NewCustomerService creates a new customer service
func NewCustomerService(
	customerRepo repository.CustomerRepository,
	txRepo repository.TransactionRepository,
	transactor repository.Transactor,
	cache repository.Cache,
	m *metrics.Metrics,
	retry RetryPolicy,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		txRepo:       txRepo,
		transactor:   transactor,
		cache:        cache,
		metrics:      m,
		balance: &balanceWriter{
			transactor:   transactor,
			customerRepo: customerRepo,
			metrics:      m,
			retry:        retry,
		},
	}
}

// CreateCustomerInput represents the create customer input
type CreateCustomerInput struct {
	Name     string
	Mobile   string
	Address  *string
	Category string
	Notes    *string
}

// CreateCustomer creates a new customer with nothing due
func (s *CustomerService) CreateCustomer(ctx context.Context, input *CreateCustomerInput) (*entity.Customer, error) {
	ownerID, ok := infraRepo.GetOwnerID(ctx)
	if !ok {
		return nil, apperror.ErrOwnerRequired
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewFieldValidationError("name", "is required")
	}
	mobile := strings.TrimSpace(input.Mobile)
	if mobile == "" {
		return nil, apperror.NewFieldValidationError("mobile", "is required")
	}
	if err := s.ensureMobileFree(ctx, mobile, uuid.Nil); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = entity.DefaultCustomerCategory
	}

	customer := &entity.Customer{
		UserID:   ownerID,
		Name:     name,
		Mobile:   mobile,
		Address:  input.Address,
		Category: category,
		Notes:    input.Notes,
		IsActive: true,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	invalidateDashboard(ctx, s.cache)
	return customer, nil
}

// ensureMobileFree fails with a conflict if another customer of the owner
// already uses mobile.
func (s *CustomerService) ensureMobileFree(ctx context.Context, mobile string, self uuid.UUID) error {
	existing, err := s.customerRepo.GetByMobile(ctx, mobile)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperror.NewConflictError("Customer with this mobile number already exists")
	}
	return nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	return customer, nil
}

// ListCustomers lists customers ordered by name
func (s *CustomerService) ListCustomers(ctx context.Context, filter repository.CustomerFilter, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Customer], error) {
	params.Validate()
	customers, total, err := s.customerRepo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(customers, pag), nil
}

// ListCustomersWithCursor lists customers using cursor-based pagination
func (s *CustomerService) ListCustomersWithCursor(ctx context.Context, filter repository.CustomerFilter, params *pagination.CursorParams) (*pagination.CursorPagination, []entity.Customer, error) {
	params.Validate()
	if _, err := params.DecodeCursor(); err != nil {
		return nil, nil, apperror.NewBadRequestError("Invalid cursor")
	}

	customers, err := s.customerRepo.ListWithCursor(ctx, filter, params)
	if err != nil {
		return nil, nil, err
	}

	cursorPag, items := pagination.NewCursorPagination(customers, params,
		func(c entity.Customer) string { return c.ID.String() },
		func(c entity.Customer) time.Time { return c.CreatedAt },
	)
	return cursorPag, items, nil
}

// UpdateCustomerInput represents the update customer input. Nil fields are
// left unchanged. TotalDue goes through SetTotalDue.
type UpdateCustomerInput struct {
	ID       uuid.UUID
	Name     *string
	Mobile   *string
	Address  *string
	Category *string
	Notes    *string
	IsActive *bool
	TotalDue *float64
}

// UpdateCustomer updates descriptive fields of a customer
func (s *CustomerService) UpdateCustomer(ctx context.Context, input *UpdateCustomerInput) (*entity.Customer, error) {
	if input.TotalDue != nil {
		if _, err := ledger.ValidateDue(*input.TotalDue); err != nil {
			return nil, ledgerError(err)
		}
	}

	customer, err := s.customerRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}

	if input.Mobile != nil {
		mobile := strings.TrimSpace(*input.Mobile)
		if mobile == "" {
			return nil, apperror.NewFieldValidationError("mobile", "is required")
		}
		if mobile != customer.Mobile {
			if err := s.ensureMobileFree(ctx, mobile, customer.ID); err != nil {
				return nil, err
			}
			customer.Mobile = mobile
		}
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.NewFieldValidationError("name", "is required")
		}
		customer.Name = name
	}
	if input.Address != nil {
		customer.Address = input.Address
	}
	if input.Category != nil {
		customer.Category = strings.TrimSpace(*input.Category)
		if customer.Category == "" {
			customer.Category = entity.DefaultCustomerCategory
		}
	}
	if input.Notes != nil {
		customer.Notes = input.Notes
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, err
	}

	if input.TotalDue != nil {
		return s.SetTotalDue(ctx, customer.ID, *input.TotalDue)
	}

	invalidateDashboard(ctx, s.cache)
	return customer, nil
}

// SetTotalDue overwrites the stored due without going through the ledger.
// The write is versioned like any other balance change and logged, since it
// can leave the due out of step with the transaction history.
func (s *CustomerService) SetTotalDue(ctx context.Context, id uuid.UUID, totalDue float64) (*entity.Customer, error) {
	due, err := ledger.ValidateDue(totalDue)
	if err != nil {
		return nil, ledgerError(err)
	}

	err = s.balance.run(ctx, id, func(ctx context.Context, customer *entity.Customer) error {
		if err := s.customerRepo.UpdateBalance(ctx, customer.ID, customer.Version, due, nil); err != nil {
			return err
		}
		logger.Warn("customer total due overridden",
			"customer_id", customer.ID,
			"previous_due", customer.TotalDue.String(),
			"new_due", due.String(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BalanceOverridden()
	invalidateDashboard(ctx, s.cache)
	return s.GetCustomer(ctx, id)
}

// DeleteCustomer deletes a customer together with its transactions
func (s *CustomerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.customerRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if customer == nil {
			return apperror.NewNotFoundError("Customer")
		}

		if err := s.txRepo.DeleteByCustomer(ctx, id); err != nil {
			return err
		}
		return s.customerRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	logger.Info("customer deleted", "customer_id", id)
	invalidateDashboard(ctx, s.cache)
	return nil
}
