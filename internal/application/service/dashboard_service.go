package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	"github.com/sangkips/khata-api/internal/domain/repository"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/logger"
)

const recentTransactionsLimit = 5

// DashboardService provides dashboard statistics
type DashboardService struct {
	customerRepo repository.CustomerRepository
	txRepo       repository.TransactionRepository
	cache        repository.Cache
	ttl          time.Duration
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	customerRepo repository.CustomerRepository,
	txRepo repository.TransactionRepository,
	cache repository.Cache,
	ttl time.Duration,
) *DashboardService {
	return &DashboardService{
		customerRepo: customerRepo,
		txRepo:       txRepo,
		cache:        cache,
		ttl:          ttl,
	}
}

// DashboardStats represents dashboard statistics
type DashboardStats struct {
	TotalCustomers           int64               `json:"total_customers"`
	TotalOutstanding         float64             `json:"total_outstanding"`
	TotalCollected           float64             `json:"total_collected"`
	CustomersWithOutstanding int64               `json:"customers_with_outstanding"`
	FullyPaidCustomers       int64               `json:"fully_paid_customers"`
	RecentTransactions       []RecentTransaction `json:"recent_transactions"`
	GeneratedAt              time.Time           `json:"generated_at"`
}

// RecentTransaction is the dashboard's short form of a transaction
type RecentTransaction struct {
	ID           uuid.UUID              `json:"id"`
	CustomerID   uuid.UUID              `json:"customer_id"`
	CustomerName string                 `json:"customer_name"`
	Kind         enum.TransactionKind   `json:"kind"`
	Status       enum.TransactionStatus `json:"status"`
	Amount       float64                `json:"amount"`
	Date         string                 `json:"date"`
}

func dashboardKey(ownerID uuid.UUID) string {
	return "dashboard:" + ownerID.String()
}

// invalidateDashboard drops the cached stats of the owner in ctx. Cache
// failures are logged and otherwise ignored; the entry expires on its own.
func invalidateDashboard(ctx context.Context, cache repository.Cache) {
	ownerID, ok := infraRepo.GetOwnerID(ctx)
	if !ok || cache == nil {
		return
	}
	if err := cache.Delete(ctx, dashboardKey(ownerID)); err != nil {
		logger.Warn("failed to invalidate dashboard cache", "owner_id", ownerID, "error", err)
	}
}

// GetDashboardStats returns dashboard statistics, from cache when possible
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	ownerID, ok := infraRepo.GetOwnerID(ctx)
	if !ok {
		return nil, apperror.ErrOwnerRequired
	}
	key := dashboardKey(ownerID)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("dashboard cache read failed", "owner_id", ownerID, "error", err)
	}
	if cached != nil {
		var stats DashboardStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
		logger.Warn("discarding corrupt dashboard cache entry", "owner_id", ownerID)
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			logger.Warn("dashboard cache write failed", "owner_id", ownerID, "error", err)
		}
	}

	return stats, nil
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	summary, err := s.customerRepo.Summary(ctx)
	if err != nil {
		return nil, err
	}

	// Collected is every payment plus every credit that was settled
	payment := enum.TransactionKindPayment
	payments, err := s.txRepo.Sum(ctx, repository.TransactionFilter{Kind: &payment})
	if err != nil {
		return nil, err
	}
	credit := enum.TransactionKindCredit
	settled, err := s.txRepo.Sum(ctx, repository.TransactionFilter{
		Kind:     &credit,
		Statuses: []enum.TransactionStatus{enum.TransactionStatusPaid},
	})
	if err != nil {
		return nil, err
	}

	recent, err := s.txRepo.Recent(ctx, recentTransactionsLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalCustomers:           summary.TotalCustomers,
		TotalOutstanding:         summary.TotalOutstanding.InexactFloat64(),
		TotalCollected:           payments.Total.Add(settled.Total).InexactFloat64(),
		CustomersWithOutstanding: summary.WithOutstanding,
		FullyPaidCustomers:       summary.TotalCustomers - summary.WithOutstanding,
		RecentTransactions:       toRecent(recent),
		GeneratedAt:              time.Now().UTC(),
	}, nil
}

func toRecent(txs []entity.Transaction) []RecentTransaction {
	out := make([]RecentTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, RecentTransaction{
			ID:           t.ID,
			CustomerID:   t.CustomerID,
			CustomerName: t.Customer.Name,
			Kind:         t.Kind,
			Status:       t.Status,
			Amount:       t.Amount.InexactFloat64(),
			Date:         t.Date.Format(entity.DateLayout),
		})
	}
	return out
}
