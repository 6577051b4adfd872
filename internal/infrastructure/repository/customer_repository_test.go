package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/khata-api/internal/domain/entity"
	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/internal/testutil"
	"github.com/sangkips/khata-api/pkg/pagination"
)

func newCustomer(t *testing.T, ctx context.Context, repo domainRepo.CustomerRepository, owner *entity.User, name, mobile string, due string) *entity.Customer {
	t.Helper()
	c := &entity.Customer{
		UserID:   owner.ID,
		Name:     name,
		Mobile:   mobile,
		Category: entity.DefaultCustomerCategory,
		TotalDue: decimal.RequireFromString(due),
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, c))
	return c
}

func TestCustomerRepository_CRUD(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	c := newCustomer(t, ctx, repo, owner, "Asha", "9000000001", "0")
	assert.NotEqual(t, uuid.Nil, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Asha", got.Name)
	assert.True(t, got.TotalDue.IsZero())

	byMobile, err := repo.GetByMobile(ctx, "9000000001")
	require.NoError(t, err)
	require.NotNil(t, byMobile)
	assert.Equal(t, c.ID, byMobile.ID)

	got.Name = "Asha Devi"
	got.Category = "VIP"
	got.IsActive = false
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Devi", updated.Name)
	assert.Equal(t, "VIP", updated.Category)
	assert.False(t, updated.IsActive)

	require.NoError(t, repo.Delete(ctx, c.ID))
	gone, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCustomerRepository_UpdateDoesNotTouchBalance(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	c := newCustomer(t, ctx, repo, owner, "Bala", "9000000002", "120.50")

	c.TotalDue = decimal.NewFromInt(999)
	c.Name = "Bala K"
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120.50").Equal(got.TotalDue), "got %s", got.TotalDue)
}

func TestCustomerRepository_OwnerIsolation(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	_, otherCtx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	c := newCustomer(t, ctx, repo, owner, "Chitra", "9000000003", "10")

	got, err := repo.GetByID(otherCtx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "no owner in context must see nothing")

	err = repo.UpdateBalance(otherCtx, c.ID, c.Version, decimal.Zero, nil)
	assert.ErrorIs(t, err, domainRepo.ErrConcurrentUpdate)
}

func TestCustomerRepository_MobileUniquePerOwner(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	other, otherCtx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	newCustomer(t, ctx, repo, owner, "Dev", "9000000004", "0")

	dup := &entity.Customer{UserID: owner.ID, Name: "Dev 2", Mobile: "9000000004", Category: "Regular", IsActive: true}
	assert.Error(t, repo.Create(ctx, dup))

	// another shop may know the same person
	newCustomer(t, otherCtx, repo, other, "Dev", "9000000004", "0")
}

func TestCustomerRepository_UpdateBalanceCAS(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	c := newCustomer(t, ctx, repo, owner, "Esha", "9000000005", "0")
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpdateBalance(ctx, c.ID, 0, decimal.NewFromInt(150), &date))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(got.TotalDue))
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.LastTransactionDate)
	assert.Equal(t, "2024-06-01", got.LastTransactionDate.Format(entity.DateLayout))

	// stale version
	err = repo.UpdateBalance(ctx, c.ID, 0, decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, domainRepo.ErrConcurrentUpdate)

	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(got.TotalDue))
}

func TestCustomerRepository_GetForUpdateInsideTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)
	transactor := repository.NewTransactor(db)

	c := newCustomer(t, ctx, repo, owner, "Farah", "9000000006", "40")

	err := transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := repo.GetForUpdate(ctx, c.ID)
		if err != nil {
			return err
		}
		return repo.UpdateBalance(ctx, locked.ID, locked.Version, locked.TotalDue.Add(decimal.NewFromInt(10)), nil)
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.TotalDue))
}

func TestCustomerRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	newCustomer(t, ctx, repo, owner, "Gopal", "9000000007", "100")
	newCustomer(t, ctx, repo, owner, "Geeta", "9000000008", "0")
	vip := newCustomer(t, ctx, repo, owner, "Hari", "9111111111", "5")
	vip.Category = "VIP"
	require.NoError(t, repo.Update(ctx, vip))

	params := &pagination.PaginationParams{Page: 1, PerPage: 10}

	all, total, err := repo.List(ctx, domainRepo.CustomerFilter{}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "Geeta", all[0].Name)

	found, total, err := repo.List(ctx, domainRepo.CustomerFilter{Search: "go"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Gopal", found[0].Name)

	found, _, err = repo.List(ctx, domainRepo.CustomerFilter{Search: "91111"}, params)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Hari", found[0].Name)

	hasDue := true
	found, total, err = repo.List(ctx, domainRepo.CustomerFilter{HasDue: &hasDue}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	found, total, err = repo.List(ctx, domainRepo.CustomerFilter{Category: "VIP"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, vip.ID, found[0].ID)

	paged, total, err := repo.List(ctx, domainRepo.CustomerFilter{}, &pagination.PaginationParams{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, paged, 1)
}

func TestCustomerRepository_ListWithCursorFirstPage(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	for i, m := range []string{"9200000001", "9200000002", "9200000003"} {
		newCustomer(t, ctx, repo, owner, "C"+string(rune('A'+i)), m, "0")
	}

	params := &pagination.CursorParams{Limit: 2}
	rows, err := repo.ListWithCursor(ctx, domainRepo.CustomerFilter{}, params)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "limit+1 rows signal a next page")
}

func TestCustomerRepository_Summary(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner, ctx := testutil.NewOwner(t, db)
	repo := repository.NewCustomerRepository(db)

	empty, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalCustomers)
	assert.True(t, empty.TotalOutstanding.IsZero())

	newCustomer(t, ctx, repo, owner, "I", "9300000001", "100.25")
	newCustomer(t, ctx, repo, owner, "J", "9300000002", "0")
	newCustomer(t, ctx, repo, owner, "K", "9300000003", "50")

	s, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.TotalCustomers)
	assert.Equal(t, int64(2), s.WithOutstanding)
	assert.True(t, decimal.RequireFromString("150.25").Equal(s.TotalOutstanding), "got %s", s.TotalOutstanding)
}
