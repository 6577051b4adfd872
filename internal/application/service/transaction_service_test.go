package service

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/khata-api/internal/domain/entity"
	"github.com/sangkips/khata-api/internal/domain/enum"
	infraRepo "github.com/sangkips/khata-api/internal/infrastructure/repository"
	khatatest "github.com/sangkips/khata-api/internal/testutil"
	"github.com/sangkips/khata-api/pkg/pagination"
)

func TestCreateTransaction_AppliesRule(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	res := f.record(t, c, "Credit", 150)
	assert.Equal(t, "0.00", res.PreviousBalance.StringFixed(2))
	assert.Equal(t, "150.00", res.NewBalance.StringFixed(2))
	assert.Equal(t, enum.TransactionStatusPending, res.Transaction.Status)
	assert.Nil(t, res.Transaction.SettledAt)

	res = f.record(t, c, "credit", 50)
	assert.Equal(t, "200.00", res.NewBalance.StringFixed(2))

	res = f.record(t, c, "Payment", 200)
	assert.Equal(t, "200.00", res.PreviousBalance.StringFixed(2))
	assert.True(t, res.NewBalance.IsZero())
	assert.Equal(t, enum.TransactionStatusPaid, res.Transaction.Status)
	assert.NotNil(t, res.Transaction.SettledAt)

	assert.Equal(t, "0.00", f.due(t, c))

	series, err := testutil.GatherAndCount(f.metrics.Registry(), "khata_ledger_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "one series per kind")
}

func TestCreateTransaction_OverpaymentIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	f.record(t, c, "Credit", 40)
	res := f.record(t, c, "Payment", 100)
	assert.True(t, res.NewBalance.IsZero())

	res = f.record(t, c, "Adjustment", 5)
	assert.True(t, res.NewBalance.IsZero())
	assert.Equal(t, "0.00", f.due(t, c))
}

func TestCreateTransaction_SetsLastTransactionDate(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	day := time.Date(2024, 5, 17, 15, 30, 0, 0, time.UTC)

	_, err := f.ledger.CreateTransaction(f.ctx, &CreateTransactionInput{
		CustomerID: c.ID,
		Kind:       "Credit",
		Amount:     12.5,
		Date:       &day,
	})
	require.NoError(t, err)

	got, err := f.customers.GetCustomer(f.ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastTransactionDate)
	assert.Equal(t, "2024-05-17", got.LastTransactionDate.Format(entity.DateLayout))
	assert.Equal(t, int64(1), got.Version)
}

func TestCreateTransaction_StampsRecordingSequence(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	first := f.record(t, c, "Credit", 10)
	second := f.record(t, c, "Payment", 4)
	assert.Equal(t, int64(1), first.Transaction.Sequence)
	assert.Equal(t, int64(2), second.Transaction.Sequence)

	// a direct override bumps the version, so later sequences skip ahead
	_, err := f.customers.SetTotalDue(f.ctx, c.ID, 50)
	require.NoError(t, err)
	third := f.record(t, c, "Credit", 1)
	assert.Equal(t, int64(4), third.Transaction.Sequence)

	history, err := f.txRepo.History(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, third.Transaction.ID, history[2].ID)
}

func TestCreateTransaction_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	cases := map[string]*CreateTransactionInput{
		"zero amount":     {CustomerID: c.ID, Kind: "Credit", Amount: 0},
		"negative amount": {CustomerID: c.ID, Kind: "Payment", Amount: -5},
		"NaN amount":      {CustomerID: c.ID, Kind: "Credit", Amount: math.NaN()},
		"infinite amount": {CustomerID: c.ID, Kind: "Credit", Amount: math.Inf(1)},
		"unknown kind":    {CustomerID: c.ID, Kind: "Refund", Amount: 10},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ledger.CreateTransaction(f.ctx, input)
			requireAppError(t, err, http.StatusUnprocessableEntity)
		})
	}

	history, err := f.txRepo.History(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, "0.00", f.due(t, c))
}

func TestCreateTransaction_OtherOwnersCustomer(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	_, otherCtx := khatatest.NewOwner(t, f.db)
	_, err := f.ledger.CreateTransaction(otherCtx, &CreateTransactionInput{CustomerID: c.ID, Kind: "Credit", Amount: 10})
	requireAppError(t, err, http.StatusNotFound)

	_, err = f.ledger.CreateTransaction(infraRepo.WithOwner(context.Background(), uuid.Nil), &CreateTransactionInput{CustomerID: c.ID, Kind: "Credit", Amount: 10})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestChangeStatus_MarkPaid(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	credit := f.record(t, c, "Credit", 75)

	res, err := f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "Paid")
	require.NoError(t, err)
	assert.Equal(t, "75.00", res.PreviousBalance.StringFixed(2))
	assert.True(t, res.NewBalance.IsZero())
	assert.Equal(t, enum.TransactionStatusPaid, res.Transaction.Status)
	assert.NotNil(t, res.Transaction.SettledAt)
	assert.Equal(t, "0.00", f.due(t, c))

	// repeating must not take the credit off twice
	f.record(t, c, "Credit", 20)
	_, err = f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "Completed")
	requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "20.00", f.due(t, c))
}

func TestChangeStatus_CancelCredit(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	f.record(t, c, "Credit", 100)
	credit := f.record(t, c, "Credit", 30)

	res, err := f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.NewBalance.StringFixed(2))

	_, err = f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "Paid")
	requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "100.00", f.due(t, c))
}

func TestChangeStatus_PaymentIsFinal(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	f.record(t, c, "Credit", 100)
	payment := f.record(t, c, "Payment", 40)

	_, err := f.ledger.ChangeStatus(f.ctx, payment.Transaction.ID, "Cancelled")
	requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, "60.00", f.due(t, c))
}

func TestChangeStatus_Errors(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	credit := f.record(t, c, "Credit", 10)

	_, err := f.ledger.ChangeStatus(f.ctx, uuid.New(), "Paid")
	requireAppError(t, err, http.StatusNotFound)

	_, err = f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "Settled")
	requireAppError(t, err, http.StatusUnprocessableEntity)

	_, err = f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "Pending")
	requireAppError(t, err, http.StatusConflict)
}

func TestDeleteTransaction_ReversesLiveEffect(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	open := f.record(t, c, "Credit", 100)
	settled := f.record(t, c, "Credit", 50)
	_, err := f.ledger.ChangeStatus(f.ctx, settled.Transaction.ID, "Paid")
	require.NoError(t, err)
	payment := f.record(t, c, "Payment", 30)
	assert.Equal(t, "70.00", f.due(t, c))

	res, err := f.ledger.DeleteTransaction(f.ctx, payment.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.NewBalance.StringFixed(2))

	res, err = f.ledger.DeleteTransaction(f.ctx, settled.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.NewBalance.StringFixed(2))

	res, err = f.ledger.DeleteTransaction(f.ctx, open.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, res.NewBalance.IsZero())

	_, err = f.ledger.DeleteTransaction(f.ctx, open.Transaction.ID)
	requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, "0.00", f.due(t, c))
}

func TestUpdateTransaction_OnlyDescriptiveFields(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	credit := f.record(t, c, "Credit", 80)

	desc := "  rice and dal "
	method := "UPI"
	txn, err := f.ledger.UpdateTransaction(f.ctx, &UpdateTransactionInput{
		ID:            credit.Transaction.ID,
		Description:   &desc,
		PaymentMethod: &method,
	})
	require.NoError(t, err)
	require.NotNil(t, txn.Description)
	assert.Equal(t, "rice and dal", *txn.Description)

	got, err := f.ledger.GetTransaction(f.ctx, credit.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "UPI", *got.PaymentMethod)
	assert.Equal(t, "80.00", got.Amount.StringFixed(2))
	assert.Equal(t, "80.00", f.due(t, c))

	_, err = f.ledger.UpdateTransaction(f.ctx, &UpdateTransactionInput{ID: uuid.New()})
	requireAppError(t, err, http.StatusNotFound)
}

func TestShortcuts(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")

	res, err := f.ledger.RecordCredit(f.ctx, &PaymentInput{CustomerID: c.ID, Amount: 120})
	require.NoError(t, err)
	assert.Equal(t, enum.TransactionKindCredit, res.Transaction.Kind)

	res, err = f.ledger.RecordPayment(f.ctx, &PaymentInput{CustomerID: c.ID, Amount: 20})
	require.NoError(t, err)
	assert.Equal(t, enum.TransactionKindPayment, res.Transaction.Kind)
	require.NotNil(t, res.Transaction.PaymentMethod)
	assert.Equal(t, DefaultPaymentMethod, *res.Transaction.PaymentMethod)
	assert.Equal(t, "100.00", res.NewBalance.StringFixed(2))
	assert.Equal(t, "20.00", res.Amount.StringFixed(2))
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	a := f.customer(t, "Asha", "9000000001")
	b := f.customer(t, "Bala", "9000000002")

	f.record(t, a, "Credit", 10)
	f.record(t, a, "Payment", 5)
	f.record(t, b, "Credit", 7)

	all, err := f.ledger.ListTransactions(f.ctx, &TransactionQuery{}, &pagination.PaginationParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.Total)

	credits, err := f.ledger.ListTransactions(f.ctx, &TransactionQuery{Kind: "credit"}, &pagination.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, credits.Items, 2)

	ofA, err := f.ledger.ListTransactions(f.ctx, &TransactionQuery{CustomerID: a.ID.String(), Status: "Paid"}, &pagination.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, ofA.Items, 1)
	assert.Equal(t, enum.TransactionKindPayment, ofA.Items[0].Kind)

	history, err := f.ledger.ListCustomerTransactions(f.ctx, b.ID, &pagination.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, history.Items, 1)

	_, err = f.ledger.ListCustomerTransactions(f.ctx, uuid.New(), &pagination.PaginationParams{})
	requireAppError(t, err, http.StatusNotFound)

	pending, err := f.ledger.ListPending(f.ctx, &pagination.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, pending.Items, 2)
}

func TestTransactionQuery_Filter(t *testing.T) {
	bad := []TransactionQuery{
		{CustomerID: "nope"},
		{Kind: "Refund"},
		{Status: "Settled"},
		{StartDate: "17/05/2024"},
		{StartDate: "2024-05-10", EndDate: "2024-05-01"},
	}
	for _, q := range bad {
		_, err := q.Filter()
		requireAppError(t, err, http.StatusUnprocessableEntity)
	}

	q := TransactionQuery{Status: "completed", StartDate: "2024-05-01", EndDate: "2024-05-31"}
	filter, err := q.Filter()
	require.NoError(t, err)
	assert.Equal(t, []enum.TransactionStatus{enum.TransactionStatusPaid}, filter.Statuses)
	assert.Equal(t, "2024-05-01", filter.StartDate.Format(entity.DateLayout))
	assert.Equal(t, "2024-05-31", filter.EndDate.Format(entity.DateLayout))
}

func TestListOverdue(t *testing.T) {
	f := newFixture(t)
	f.ledger.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }
	c := f.customer(t, "Asha", "9000000001")

	create := func(kind string, date time.Time) *LedgerResult {
		res, err := f.ledger.CreateTransaction(f.ctx, &CreateTransactionInput{CustomerID: c.ID, Kind: kind, Amount: 10, Date: &date})
		require.NoError(t, err)
		return res
	}

	old := create("Credit", time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC))
	create("Credit", time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	create("Payment", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	settled := create("Credit", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	_, err := f.ledger.ChangeStatus(f.ctx, settled.Transaction.ID, "Paid")
	require.NoError(t, err)

	overdue, err := f.ledger.ListOverdue(f.ctx, &pagination.PaginationParams{})
	require.NoError(t, err)
	require.Len(t, overdue.Items, 1)
	assert.Equal(t, old.Transaction.ID, overdue.Items[0].ID)
}

func TestLedgerWritesInvalidateDashboard(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Asha", "9000000001")
	key := dashboardKey(f.owner.ID)

	_, err := f.dashboard.GetDashboardStats(f.ctx)
	require.NoError(t, err)
	require.True(t, f.cache.has(key))

	credit := f.record(t, c, "Credit", 10)
	assert.False(t, f.cache.has(key))

	_, err = f.dashboard.GetDashboardStats(f.ctx)
	require.NoError(t, err)
	_, err = f.ledger.ChangeStatus(f.ctx, credit.Transaction.ID, "Paid")
	require.NoError(t, err)
	assert.False(t, f.cache.has(key))
}
