package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	"github.com/sangkips/khata-api/internal/domain/ledger"
	"github.com/sangkips/khata-api/internal/domain/repository"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/logger"
	"github.com/sangkips/khata-api/pkg/metrics"
	"github.com/sangkips/khata-api/pkg/statement"
)

// ReconciliationService compares stored dues with the due derived from the
// transaction history, repairs drift and exports statements.
type ReconciliationService struct {
	customerRepo repository.CustomerRepository
	txRepo       repository.TransactionRepository
	userRepo     repository.UserRepository
	cache        repository.Cache
	metrics      *metrics.Metrics
	balance      *balanceWriter
	now          func() time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	customerRepo repository.CustomerRepository,
	txRepo repository.TransactionRepository,
	userRepo repository.UserRepository,
	transactor repository.Transactor,
	cache repository.Cache,
	m *metrics.Metrics,
	retry RetryPolicy,
) *ReconciliationService {
	return &ReconciliationService{
		customerRepo: customerRepo,
		txRepo:       txRepo,
		userRepo:     userRepo,
		cache:        cache,
		metrics:      m,
		balance: &balanceWriter{
			transactor:   transactor,
			customerRepo: customerRepo,
			metrics:      m,
			retry:        retry,
		},
		now: time.Now,
	}
}

// Reconciliation is the outcome of replaying a customer's history
type Reconciliation struct {
	CustomerID   uuid.UUID
	StoredDue    decimal.Decimal
	DerivedDue   decimal.Decimal
	Transactions int
	Repaired     bool
	CheckedAt    time.Time
}

// Drift is how far the stored due is above the derived one
func (r *Reconciliation) Drift() decimal.Decimal {
	return r.StoredDue.Sub(r.DerivedDue)
}

// InSync reports whether the stored due matches the history
func (r *Reconciliation) InSync() bool {
	return r.Drift().IsZero()
}

func (r Reconciliation) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		CustomerID   uuid.UUID `json:"customer_id"`
		StoredDue    float64   `json:"stored_due"`
		DerivedDue   float64   `json:"derived_due"`
		Drift        float64   `json:"drift"`
		InSync       bool      `json:"in_sync"`
		Transactions int       `json:"transactions"`
		Repaired     bool      `json:"repaired"`
		CheckedAt    time.Time `json:"checked_at"`
	}{
		CustomerID:   r.CustomerID,
		StoredDue:    r.StoredDue.InexactFloat64(),
		DerivedDue:   r.DerivedDue.InexactFloat64(),
		Drift:        r.Drift().InexactFloat64(),
		InSync:       r.InSync(),
		Transactions: r.Transactions,
		Repaired:     r.Repaired,
		CheckedAt:    r.CheckedAt,
	})
}

// Reconcile replays the customer's history and reports any drift. Nothing
// is written.
func (s *ReconciliationService) Reconcile(ctx context.Context, customerID uuid.UUID) (*Reconciliation, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}

	history, err := s.txRepo.History(ctx, customerID)
	if err != nil {
		return nil, err
	}
	derived, _, err := replay(history)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		CustomerID:   customerID,
		StoredDue:    customer.TotalDue,
		DerivedDue:   derived,
		Transactions: len(history),
		CheckedAt:    s.now().UTC(),
	}
	if !rec.InSync() {
		s.metrics.DriftDetected()
		logger.Warn("customer due drifted from history",
			"customer_id", customerID,
			"stored_due", rec.StoredDue.String(),
			"derived_due", rec.DerivedDue.String(),
		)
	}
	return rec, nil
}

// Repair overwrites the stored due with the one derived from history. The
// replay runs under the customer lock so no transaction can slip in between.
func (s *ReconciliationService) Repair(ctx context.Context, customerID uuid.UUID) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.balance.run(ctx, customerID, func(ctx context.Context, customer *entity.Customer) error {
		history, err := s.txRepo.History(ctx, customerID)
		if err != nil {
			return err
		}
		derived, _, err := replay(history)
		if err != nil {
			return err
		}

		rec = &Reconciliation{
			CustomerID:   customerID,
			StoredDue:    customer.TotalDue,
			DerivedDue:   derived,
			Transactions: len(history),
			CheckedAt:    s.now().UTC(),
		}
		if rec.InSync() {
			return nil
		}

		if err := s.customerRepo.UpdateBalance(ctx, customer.ID, customer.Version, derived, nil); err != nil {
			return err
		}
		rec.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rec.Repaired {
		s.metrics.DriftDetected()
		logger.Warn("customer due repaired from history",
			"customer_id", customerID,
			"stored_due", rec.StoredDue.String(),
			"derived_due", rec.DerivedDue.String(),
		)
		invalidateDashboard(ctx, s.cache)
	}
	return rec, nil
}

// WriteStatement renders the customer's history with a running balance as an
// xlsx workbook.
func (s *ReconciliationService) WriteStatement(ctx context.Context, customerID uuid.UUID, w io.Writer) error {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	if customer == nil {
		return apperror.NewNotFoundError("Customer")
	}

	history, err := s.txRepo.History(ctx, customerID)
	if err != nil {
		return err
	}
	_, steps, err := replay(history)
	if err != nil {
		return err
	}

	header := statement.Header{
		CustomerName: customer.Name,
		Mobile:       customer.Mobile,
		GeneratedAt:  s.now(),
		TotalDue:     customer.TotalDue,
	}
	if ownerID, ok := infraRepo.GetOwnerID(ctx); ok {
		owner, err := s.userRepo.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner != nil && owner.ShopName != nil {
			header.ShopName = *owner.ShopName
		}
	}

	return statement.Write(w, header, statementLines(history, steps))
}

func replay(history []entity.Transaction) (decimal.Decimal, []ledger.Step, error) {
	entries := make([]ledger.Entry, len(history))
	for i := range history {
		entries[i] = history[i].LedgerEntry()
	}
	due, steps, err := ledger.Replay(entries)
	if err != nil {
		return decimal.Zero, nil, ledgerError(err)
	}
	return due, steps, nil
}

// statementLines turns replay steps into statement rows. The debit or credit
// of a row is the actual change in balance, so floored payments show what
// they really took off.
func statementLines(history []entity.Transaction, steps []ledger.Step) []statement.Line {
	byID := make(map[string]*entity.Transaction, len(history))
	for i := range history {
		byID[history[i].ID.String()] = &history[i]
	}

	lines := make([]statement.Line, 0, len(steps))
	prev := decimal.Zero
	for _, step := range steps {
		txn := byID[step.Entry.ID]
		line := statement.Line{
			Date:    step.At,
			Kind:    step.Entry.Kind.String(),
			Status:  step.Entry.Status.String(),
			Balance: step.Balance,
		}
		if txn != nil {
			if !step.Settlement {
				line.Date = txn.Date
			}
			line.Description = deref(txn.Description)
			line.PaymentMethod = deref(txn.PaymentMethod)
		}
		if step.Settlement {
			line.Kind = "Credit " + settlementLabel(step.Entry.Status)
		}

		change := step.Balance.Sub(prev)
		if change.IsPositive() {
			line.Debit = change
		} else {
			line.Credit = change.Neg()
		}
		prev = step.Balance
		lines = append(lines, line)
	}
	return lines
}

func settlementLabel(status enum.TransactionStatus) string {
	if status == enum.TransactionStatusCancelled {
		return "cancelled"
	}
	return "settled"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
