package service

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/repository"
	khatatest "github.com/sangkips/khata-api/internal/testutil"
	"github.com/sangkips/khata-api/pkg/pagination"
)

func TestCreateCustomer(t *testing.T) {
	f := newFixture(t)

	c, err := f.customers.CreateCustomer(f.ctx, &CreateCustomerInput{Name: "  Asha ", Mobile: " 9000000001 "})
	require.NoError(t, err)
	assert.Equal(t, "Asha", c.Name)
	assert.Equal(t, "9000000001", c.Mobile)
	assert.Equal(t, entity.DefaultCustomerCategory, c.Category)
	assert.True(t, c.IsActive)
	assert.True(t, c.TotalDue.IsZero())
	assert.Equal(t, f.owner.ID, c.UserID)

	_, err = f.customers.CreateCustomer(f.ctx, &CreateCustomerInput{Name: "Other", Mobile: "9000000001"})
	requireAppError(t, err, http.StatusConflict)

	_, err = f.customers.CreateCustomer(f.ctx, &CreateCustomerInput{Name: " ", Mobile: "9000000002"})
	requireAppError(t, err, http.StatusUnprocessableEntity)
	_, err = f.customers.CreateCustomer(f.ctx, &CreateCustomerInput{Name: "Bala"})
	requireAppError(t, err, http.StatusUnprocessableEntity)
}

func TestCreateCustomer_MobileIsUniquePerOwner(t *testing.T) {
	f := newFixture(t)
	f.customer(t, "Asha", "9000000001")

	_, otherCtx := khatatest.NewOwner(t, f.db)
	c, err := f.customers.CreateCustomer(otherCtx, &CreateCustomerInput{Name: "Asha elsewhere", Mobile: "9000000001", Category: "VIP"})
	require.NoError(t, err)
	assert.Equal(t, "VIP", c.Category)
}

func TestUpdateCustomer(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	f.customer(t, "Bala", "9000000002")
	f.record(t, c, "Credit", 60)

	taken := "9000000002"
	_, err := f.customers.UpdateCustomer(f.ctx, &UpdateCustomerInput{ID: c.ID, Mobile: &taken})
	requireAppError(t, err, http.StatusConflict)

	name := "Asha K"
	mobile := "9000000003"
	category := ""
	inactive := false
	got, err := f.customers.UpdateCustomer(f.ctx, &UpdateCustomerInput{
		ID:       c.ID,
		Name:     &name,
		Mobile:   &mobile,
		Category: &category,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.Equal(t, "9000000003", got.Mobile)
	assert.Equal(t, entity.DefaultCustomerCategory, got.Category)
	assert.False(t, got.IsActive)

	// descriptive edits never move the due
	assert.Equal(t, "60.00", f.due(t, c))

	blank := ""
	_, err = f.customers.UpdateCustomer(f.ctx, &UpdateCustomerInput{ID: c.ID, Name: &blank})
	requireAppError(t, err, http.StatusUnprocessableEntity)

	_, err = f.customers.UpdateCustomer(f.ctx, &UpdateCustomerInput{ID: uuid.New(), Name: &name})
	requireAppError(t, err, http.StatusNotFound)
}

func TestListCustomers(t *testing.T) {
	f := newFixture(t)
	a := f.customer(t, "Asha", "9000000001")
	f.customer(t, "Bala", "9000000002")
	f.customer(t, "Chitra", "9000000003")
	f.record(t, a, "Credit", 10)

	page, err := f.customers.ListCustomers(f.ctx, repository.CustomerFilter{}, &pagination.PaginationParams{PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.Pagination.HasNext)

	hasDue := true
	owing, err := f.customers.ListCustomers(f.ctx, repository.CustomerFilter{HasDue: &hasDue}, &pagination.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, owing.Items, 1)
	assert.Equal(t, a.ID, owing.Items[0].ID)

	cursor, items, err := f.customers.ListCustomersWithCursor(f.ctx, repository.CustomerFilter{}, &pagination.CursorParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, cursor.HasNext)
	require.NotNil(t, cursor.NextCursor)

	_, _, err = f.customers.ListCustomersWithCursor(f.ctx, repository.CustomerFilter{}, &pagination.CursorParams{Cursor: "%%%"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestSetTotalDue(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	f.record(t, c, "Credit", 100)

	got, err := f.customers.SetTotalDue(f.ctx, c.ID, 42.5)
	require.NoError(t, err)
	assert.Equal(t, "42.50", got.TotalDue.StringFixed(2))
	assert.Equal(t, int64(2), got.Version)

	series, err := testutil.GatherAndCount(f.metrics.Registry(), "khata_ledger_balance_overrides_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)

	_, err = f.customers.SetTotalDue(f.ctx, c.ID, -1)
	requireAppError(t, err, http.StatusUnprocessableEntity)

	_, err = f.customers.SetTotalDue(f.ctx, uuid.New(), 1)
	requireAppError(t, err, http.StatusNotFound)
}

func TestUpdateCustomer_TotalDueIsAnOverride(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	notes := "via PATCH"
	due := 200.0
	got, err := f.customers.UpdateCustomer(f.ctx, &UpdateCustomerInput{ID: c.ID, Notes: &notes, TotalDue: &due})
	require.NoError(t, err)
	assert.Equal(t, "200.00", got.TotalDue.StringFixed(2))
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)

	series, err := testutil.GatherAndCount(f.metrics.Registry(), "khata_ledger_balance_overrides_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)

	// a bad due is rejected before anything is written
	name := "Asha K"
	negative := -5.0
	_, err = f.customers.UpdateCustomer(f.ctx, &UpdateCustomerInput{ID: c.ID, Name: &name, TotalDue: &negative})
	requireAppError(t, err, http.StatusUnprocessableEntity)

	got, err = f.customers.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, "200.00", got.TotalDue.StringFixed(2))
}

func TestDeleteCustomer_Cascades(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	keep := f.customer(t, "Bala", "9000000002")
	f.record(t, c, "Credit", 10)
	f.record(t, c, "Payment", 5)
	f.record(t, keep, "Credit", 7)

	require.NoError(t, f.customers.DeleteCustomer(f.ctx, c.ID))

	_, err := f.customers.GetCustomer(f.ctx, c.ID)
	requireAppError(t, err, http.StatusNotFound)

	var remaining int64
	require.NoError(t, f.db.Model(&entity.Transaction{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	err = f.customers.DeleteCustomer(f.ctx, c.ID)
	requireAppError(t, err, http.StatusNotFound)
}
