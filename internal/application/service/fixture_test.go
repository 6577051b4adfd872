package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/repository"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/internal/testutil"
	"github.com/sangkips/khata-api/pkg/apperror"
	"github.com/sangkips/khata-api/pkg/metrics"
)

type fixture struct {
	db      *gorm.DB
	ctx     context.Context
	owner   *entity.User
	cache   *memoryCache
	metrics *metrics.Metrics

	customerRepo repository.CustomerRepository
	txRepo       repository.TransactionRepository
	userRepo     repository.UserRepository
	transactor   repository.Transactor

	customers *CustomerService
	ledger    *TransactionService
	audit     *ReconciliationService
	reports   *ReportService
	dashboard *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)

	f := &fixture{
		db:           db,
		ctx:          ctx,
		owner:        owner,
		cache:        newMemoryCache(),
		metrics:      metrics.New("khata", "test"),
		customerRepo: infraRepo.NewCustomerRepository(db),
		txRepo:       infraRepo.NewTransactionRepository(db),
		userRepo:     infraRepo.NewUserRepository(db),
		transactor:   infraRepo.NewTransactor(db),
	}

	retry := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
	f.customers = NewCustomerService(f.customerRepo, f.txRepo, f.transactor, f.cache, f.metrics, retry)
	f.ledger = NewTransactionService(f.customerRepo, f.txRepo, f.transactor, f.cache, f.metrics, retry, 30)
	f.audit = NewReconciliationService(f.customerRepo, f.txRepo, f.userRepo, f.transactor, f.cache, f.metrics, retry)
	f.reports = NewReportService(f.txRepo)
	f.dashboard = NewDashboardService(f.customerRepo, f.txRepo, f.cache, time.Minute)
	return f
}

func (f *fixture) customer(t *testing.T, name, mobile string) *entity.Customer {
	t.Helper()
	c, err := f.customers.CreateCustomer(f.ctx, &CreateCustomerInput{Name: name, Mobile: mobile})
	require.NoError(t, err)
	return c
}

func (f *fixture) record(t *testing.T, c *entity.Customer, kind string, amount float64) *LedgerResult {
	t.Helper()
	res, err := f.ledger.CreateTransaction(f.ctx, &CreateTransactionInput{
		CustomerID: c.ID,
		Kind:       kind,
		Amount:     amount,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) due(t *testing.T, c *entity.Customer) string {
	t.Helper()
	got, err := f.customerRepo.GetByID(f.ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.TotalDue.StringFixed(2)
}

func requireAppError(t *testing.T, err error, code int) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

// memoryCache is an in-process Cache that records deletions
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
