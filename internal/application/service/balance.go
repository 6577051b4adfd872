package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/ledger"
	"github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/logger"
	"github.com/sangkips/khata-api/pkg/metrics"
)

// RetryPolicy controls how balance writes that lose a version race are retried
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries three times starting at 10ms
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 10 * time.Millisecond}

// LedgerResult describes one balance movement
type LedgerResult struct {
	Transaction     *entity.Transaction
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Amount          decimal.Decimal
}

func (r LedgerResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Transaction     *entity.Transaction `json:"transaction"`
		PreviousBalance float64             `json:"previous_balance"`
		NewBalance      float64             `json:"new_balance"`
		Amount          float64             `json:"amount"`
	}{
		Transaction:     r.Transaction,
		PreviousBalance: r.PreviousBalance.InexactFloat64(),
		NewBalance:      r.NewBalance.InexactFloat64(),
		Amount:          r.Amount.InexactFloat64(),
	})
}

// balanceWriter runs a unit of work against one customer's balance: open a
// database transaction, lock the customer row, run fn, commit. A lost version
// race rolls everything back and starts over with a fresh read.
type balanceWriter struct {
	transactor   repository.Transactor
	customerRepo repository.CustomerRepository
	metrics      *metrics.Metrics
	retry        RetryPolicy
}

func (w *balanceWriter) run(ctx context.Context, customerID uuid.UUID, fn func(ctx context.Context, customer *entity.Customer) error) error {
	return withRetry(ctx, w.retry, func() error {
		err := w.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			customer, err := w.customerRepo.GetForUpdate(ctx, customerID)
			if err != nil {
				return err
			}
			if customer == nil {
				return apperror.NewNotFoundError("Customer")
			}
			return fn(ctx, customer)
		})
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			w.metrics.BalanceConflict()
			logger.Debug("balance write lost version race", "customer_id", customerID)
		}
		return err
	})
}

// withRetry calls fn until it stops failing with ErrConcurrentUpdate, backing
// off exponentially between attempts.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if !errors.Is(err, repository.ErrConcurrentUpdate) {
			return err
		}

		if attempt < attempts-1 {
			delay := policy.BaseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return apperror.ErrConcurrentUpdate
}

// ledgerError converts errors from the reconciliation rule into AppErrors
func ledgerError(err error) error {
	var validationErr *ledger.ValidationError
	if errors.As(err, &validationErr) {
		return apperror.NewFieldValidationError(validationErr.Field, validationErr.Message)
	}

	var transitionErr *ledger.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		if transitionErr.NotFound {
			return apperror.NewNotFoundError("Transaction")
		}
		return apperror.NewConflictError(transitionErr.Error())
	}

	return err
}
