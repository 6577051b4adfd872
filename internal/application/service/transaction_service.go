package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	"github.com/sangkips/khata-api/internal/domain/ledger"
	"github.com/sangkips/khata-api/internal/domain/repository"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/logger"
	"github.com/sangkips/khata-api/pkg/metrics"
	"github.com/sangkips/khata-api/pkg/pagination"
)

// TransactionService records ledger movements. Every write that touches a
// customer's due runs as one database transaction with the customer row
// locked, so the transaction record and the due can never disagree.
type TransactionService struct {
	customerRepo repository.CustomerRepository
	txRepo       repository.TransactionRepository
	cache        repository.Cache
	metrics      *metrics.Metrics
	balance      *balanceWriter
	overdueDays  int
	now          func() time.Time
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	customerRepo repository.CustomerRepository,
	txRepo repository.TransactionRepository,
	transactor repository.Transactor,
	cache repository.Cache,
	m *metrics.Metrics,
	retry RetryPolicy,
	overdueDays int,
) *TransactionService {
	return &TransactionService{
		customerRepo: customerRepo,
		txRepo:       txRepo,
		cache:        cache,
		metrics:      m,
		balance: &balanceWriter{
			transactor:   transactor,
			customerRepo: customerRepo,
			metrics:      m,
			retry:        retry,
		},
		overdueDays: overdueDays,
		now:         time.Now,
	}
}

// CreateTransactionInput represents the create transaction input
type CreateTransactionInput struct {
	CustomerID    uuid.UUID
	Kind          string
	Amount        float64
	Date          *time.Time
	Description   *string
	PaymentMethod *string
	Notes         *string
}

// CreateTransaction records a transaction and applies it to the customer's due
func (s *TransactionService) CreateTransaction(ctx context.Context, input *CreateTransactionInput) (*LedgerResult, error) {
	ownerID, ok := infraRepo.GetOwnerID(ctx)
	if !ok {
		return nil, apperror.ErrOwnerRequired
	}

	kind, err := ledger.ParseKind(input.Kind)
	if err != nil {
		return nil, ledgerError(err)
	}
	amount, err := ledger.ValidateAmount(input.Amount)
	if err != nil {
		return nil, ledgerError(err)
	}

	now := s.now()
	date := entity.BusinessDate(now)
	if input.Date != nil {
		date = entity.BusinessDate(*input.Date)
	}

	var result *LedgerResult
	err = s.balance.run(ctx, input.CustomerID, func(ctx context.Context, customer *entity.Customer) error {
		newDue, err := ledger.Apply(customer.TotalDue, kind, amount)
		if err != nil {
			return ledgerError(err)
		}

		txn := &entity.Transaction{
			UserID:        ownerID,
			CustomerID:    customer.ID,
			Kind:          kind,
			Amount:        amount,
			Date:          date,
			Status:        ledger.InitialStatus(kind),
			Description:   trimmed(input.Description),
			PaymentMethod: trimmed(input.PaymentMethod),
			Notes:         input.Notes,
			Sequence:      customer.Version + 1,
		}
		if !txn.IsOpen() {
			settled := now
			txn.SettledAt = &settled
		}

		if err := s.txRepo.Create(ctx, txn); err != nil {
			return err
		}
		if err := s.customerRepo.UpdateBalance(ctx, customer.ID, customer.Version, newDue, &date); err != nil {
			return err
		}

		result = &LedgerResult{
			Transaction:     txn,
			PreviousBalance: customer.TotalDue,
			NewBalance:      newDue,
			Amount:          amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("transaction recorded",
		"transaction_id", result.Transaction.ID,
		"customer_id", input.CustomerID,
		"kind", kind,
		"amount", amount.String(),
		"previous_due", result.PreviousBalance.String(),
		"new_due", result.NewBalance.String(),
	)
	s.metrics.TransactionRecorded(kind.String(), amount.InexactFloat64())
	invalidateDashboard(ctx, s.cache)

	return result, nil
}

// DefaultPaymentMethod is used for payments recorded without one
const DefaultPaymentMethod = "Cash"

// PaymentInput represents a payment or credit taken through the customer shortcut
type PaymentInput struct {
	CustomerID    uuid.UUID
	Amount        float64
	Date          *time.Time
	Description   *string
	PaymentMethod *string
	Notes         *string
}

func (p *PaymentInput) as(kind enum.TransactionKind) *CreateTransactionInput {
	return &CreateTransactionInput{
		CustomerID:    p.CustomerID,
		Kind:          kind.String(),
		Amount:        p.Amount,
		Date:          p.Date,
		Description:   p.Description,
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
	}
}

// RecordPayment records money received from a customer. The payment method
// defaults to cash.
func (s *TransactionService) RecordPayment(ctx context.Context, input *PaymentInput) (*LedgerResult, error) {
	create := input.as(enum.TransactionKindPayment)
	if trimmed(create.PaymentMethod) == nil {
		method := DefaultPaymentMethod
		create.PaymentMethod = &method
	}
	return s.CreateTransaction(ctx, create)
}

// RecordCredit records goods given to a customer on credit
func (s *TransactionService) RecordCredit(ctx context.Context, input *PaymentInput) (*LedgerResult, error) {
	return s.CreateTransaction(ctx, input.as(enum.TransactionKindCredit))
}

// ChangeStatus moves a transaction to a new status and applies the balance
// effect of that transition. Repeating a transition is rejected so a credit
// is never taken off the due twice.
func (s *TransactionService) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*LedgerResult, error) {
	to, err := ledger.ParseStatus(status)
	if err != nil {
		return nil, ledgerError(err)
	}

	current, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ledgerError(ledger.TransactionNotFound(id.String()))
	}

	var result *LedgerResult
	err = s.balance.run(ctx, current.CustomerID, func(ctx context.Context, customer *entity.Customer) error {
		txn, err := s.txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if txn == nil {
			return ledgerError(ledger.TransactionNotFound(id.String()))
		}

		newDue, err := ledger.Transition(customer.TotalDue, txn.Kind, txn.Amount, txn.Status, to)
		if err != nil {
			var transitionErr *ledger.InvalidTransitionError
			if errors.As(err, &transitionErr) {
				transitionErr.TransactionID = id.String()
			}
			return ledgerError(err)
		}

		settledAt := s.now()
		if err := s.txRepo.UpdateStatus(ctx, id, txn.Status, to, settledAt); err != nil {
			return err
		}
		if err := s.customerRepo.UpdateBalance(ctx, customer.ID, customer.Version, newDue, nil); err != nil {
			return err
		}

		txn.Status = to
		txn.SettledAt = &settledAt
		result = &LedgerResult{
			Transaction:     txn,
			PreviousBalance: customer.TotalDue,
			NewBalance:      newDue,
			Amount:          txn.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("transaction status changed",
		"transaction_id", id,
		"customer_id", current.CustomerID,
		"to", to,
		"previous_due", result.PreviousBalance.String(),
		"new_due", result.NewBalance.String(),
	)
	s.metrics.StatusChanged(result.Transaction.Kind.String(), to.String())
	invalidateDashboard(ctx, s.cache)

	return result, nil
}

// UpdateTransactionInput carries the descriptive fields of a transaction.
// Kind, amount and customer are fixed once recorded.
type UpdateTransactionInput struct {
	ID            uuid.UUID
	Description   *string
	PaymentMethod *string
	Notes         *string
}

// UpdateTransaction edits descriptive fields; the due is not touched
func (s *TransactionService) UpdateTransaction(ctx context.Context, input *UpdateTransactionInput) (*entity.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, apperror.NewNotFoundError("Transaction")
	}

	if input.Description != nil {
		txn.Description = trimmed(input.Description)
	}
	if input.PaymentMethod != nil {
		txn.PaymentMethod = trimmed(input.PaymentMethod)
	}
	if input.Notes != nil {
		txn.Notes = input.Notes
	}

	if err := s.txRepo.UpdateDetails(ctx, txn); err != nil {
		return nil, err
	}

	invalidateDashboard(ctx, s.cache)
	return txn, nil
}

// DeleteTransaction removes a transaction and undoes whatever part of it is
// still reflected in the customer's due.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id uuid.UUID) (*LedgerResult, error) {
	current, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperror.NewNotFoundError("Transaction")
	}

	var result *LedgerResult
	err = s.balance.run(ctx, current.CustomerID, func(ctx context.Context, customer *entity.Customer) error {
		txn, err := s.txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if txn == nil {
			return apperror.NewNotFoundError("Transaction")
		}

		newDue, err := ledger.Reverse(customer.TotalDue, txn.Kind, txn.Amount, txn.Status)
		if err != nil {
			return ledgerError(err)
		}

		if err := s.txRepo.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.customerRepo.UpdateBalance(ctx, customer.ID, customer.Version, newDue, nil); err != nil {
			return err
		}

		result = &LedgerResult{
			Transaction:     txn,
			PreviousBalance: customer.TotalDue,
			NewBalance:      newDue,
			Amount:          txn.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("transaction deleted",
		"transaction_id", id,
		"customer_id", current.CustomerID,
		"previous_due", result.PreviousBalance.String(),
		"new_due", result.NewBalance.String(),
	)
	s.metrics.TransactionReversed(current.Kind.String())
	invalidateDashboard(ctx, s.cache)

	return result, nil
}

// GetTransaction retrieves a transaction by ID
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, apperror.NewNotFoundError("Transaction")
	}
	return txn, nil
}

// TransactionQuery is the raw filter of a transaction listing
type TransactionQuery struct {
	CustomerID string
	Kind       string
	Status     string
	StartDate  string
	EndDate    string
}

// Filter validates the query and converts it into a repository filter
func (q *TransactionQuery) Filter() (repository.TransactionFilter, error) {
	var filter repository.TransactionFilter

	if q.CustomerID != "" {
		id, err := uuid.Parse(q.CustomerID)
		if err != nil {
			return filter, apperror.NewFieldValidationError("customer_id", "must be a valid UUID")
		}
		filter.CustomerID = &id
	}
	if q.Kind != "" {
		kind, err := ledger.ParseKind(q.Kind)
		if err != nil {
			return filter, ledgerError(err)
		}
		filter.Kind = &kind
	}
	if q.Status != "" {
		status, err := ledger.ParseStatus(q.Status)
		if err != nil {
			return filter, ledgerError(err)
		}
		filter.Statuses = []enum.TransactionStatus{status}
	}

	var err error
	if filter.StartDate, err = parseDateParam("start_date", q.StartDate); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDateParam("end_date", q.EndDate); err != nil {
		return filter, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, apperror.NewFieldValidationError("end_date", "must not be before start_date")
	}

	return filter, nil
}

// ListTransactions lists transactions, newest business date first
func (s *TransactionService) ListTransactions(ctx context.Context, query *TransactionQuery, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Transaction], error) {
	filter, err := query.Filter()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, params)
}

// ListCustomerTransactions lists the transactions of one customer
func (s *TransactionService) ListCustomerTransactions(ctx context.Context, customerID uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Transaction], error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	return s.list(ctx, repository.TransactionFilter{CustomerID: &customerID}, params)
}

// ListPending lists credits that have not been settled yet
func (s *TransactionService) ListPending(ctx context.Context, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Transaction], error) {
	return s.list(ctx, repository.TransactionFilter{
		Statuses: []enum.TransactionStatus{enum.TransactionStatusPending},
	}, params)
}

// ListOverdue lists pending credits dated more than the overdue window ago
func (s *TransactionService) ListOverdue(ctx context.Context, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Transaction], error) {
	credit := enum.TransactionKindCredit
	cutoff := entity.BusinessDate(s.now()).AddDate(0, 0, -s.overdueDays-1)
	return s.list(ctx, repository.TransactionFilter{
		Kind:     &credit,
		Statuses: []enum.TransactionStatus{enum.TransactionStatusPending},
		EndDate:  &cutoff,
	}, params)
}

func (s *TransactionService) list(ctx context.Context, filter repository.TransactionFilter, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Transaction], error) {
	params.Validate()
	txs, total, err := s.txRepo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(txs, pag), nil
}

func parseDateParam(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := entity.ParseBusinessDate(value)
	if err != nil {
		return nil, apperror.NewFieldValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
