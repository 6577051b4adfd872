package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/khata-api/internal/domain/enum"
)

func TestReplay_Empty(t *testing.T) {
	due, steps, err := Replay(nil)
	require.NoError(t, err)
	assert.True(t, due.IsZero())
	assert.Empty(t, steps)
}

func TestReplay_MatchesIncrementalHistory(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	settled := t0.Add(3 * time.Hour)

	entries := []Entry{
		{ID: "c1", Kind: enum.TransactionKindCredit, Amount: d("150"), Status: enum.TransactionStatusPaid, RecordedAt: t0, SettledAt: &settled},
		{ID: "p1", Kind: enum.TransactionKindPayment, Amount: d("50"), Status: enum.TransactionStatusPaid, RecordedAt: t0.Add(time.Hour)},
		{ID: "c2", Kind: enum.TransactionKindCredit, Amount: d("80"), Status: enum.TransactionStatusPending, RecordedAt: t0.Add(2 * time.Hour)},
	}

	due, steps, err := Replay(entries)
	require.NoError(t, err)

	// 150, 100, 180, then c1 settles: 30
	require.Len(t, steps, 4)
	assert.True(t, d("150").Equal(steps[0].Balance))
	assert.True(t, d("100").Equal(steps[1].Balance))
	assert.True(t, d("180").Equal(steps[2].Balance))
	assert.True(t, steps[3].Settlement)
	assert.Equal(t, "c1", steps[3].Entry.ID)
	assert.True(t, d("30").Equal(due))
}

func TestReplay_FloorIsOrderSensitive(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: "p1", Kind: enum.TransactionKindPayment, Amount: d("40"), Status: enum.TransactionStatusPaid, RecordedAt: t0},
		{ID: "c1", Kind: enum.TransactionKindCredit, Amount: d("100"), Status: enum.TransactionStatusPending, RecordedAt: t0.Add(time.Minute)},
	}

	due, _, err := Replay(entries)
	require.NoError(t, err)
	// payment against a zero due is absorbed
	assert.True(t, d("100").Equal(due))
}

func TestReplay_ClosedCreditWithoutSettlementTime(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: "c1", Kind: enum.TransactionKindCredit, Amount: d("60"), Status: enum.TransactionStatusCancelled, RecordedAt: t0},
		{ID: "c2", Kind: enum.TransactionKindCredit, Amount: d("25"), Status: enum.TransactionStatusPending, RecordedAt: t0},
	}

	due, steps, err := Replay(entries)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.False(t, steps[0].Settlement)
	assert.True(t, steps[1].Settlement)
	assert.Equal(t, "c1", steps[1].Entry.ID)
	assert.True(t, d("25").Equal(due))
}

func TestReplay_CancelledCreditMatchesTransition(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cancelled := t0.Add(3 * time.Hour)

	entries := []Entry{
		{ID: "c1", Kind: enum.TransactionKindCredit, Amount: d("100"), Status: enum.TransactionStatusPending, RecordedAt: t0},
		{ID: "c2", Kind: enum.TransactionKindCredit, Amount: d("50"), Status: enum.TransactionStatusCancelled, RecordedAt: t0.Add(time.Hour), SettledAt: &cancelled},
		{ID: "p1", Kind: enum.TransactionKindPayment, Amount: d("120"), Status: enum.TransactionStatusPaid, RecordedAt: t0.Add(2 * time.Hour)},
	}

	// the same history applied one write at a time
	due := d("0")
	var err error
	due, err = Apply(due, enum.TransactionKindCredit, d("100"))
	require.NoError(t, err)
	due, err = Apply(due, enum.TransactionKindCredit, d("50"))
	require.NoError(t, err)
	due, err = Apply(due, enum.TransactionKindPayment, d("120"))
	require.NoError(t, err)
	due, err = Transition(due, enum.TransactionKindCredit, d("50"), enum.TransactionStatusPending, enum.TransactionStatusCancelled)
	require.NoError(t, err)

	replayed, steps, err := Replay(entries)
	require.NoError(t, err)
	assert.True(t, due.Equal(replayed), "replay %s, incremental %s", replayed, due)
	assert.True(t, replayed.IsZero(), "the reversal is floored at zero")

	require.Len(t, steps, 4)
	assert.True(t, d("150").Equal(steps[1].Balance), "cancelled credit counts until it is cancelled")
	assert.True(t, d("30").Equal(steps[2].Balance))
	assert.True(t, steps[3].Settlement)
	assert.Equal(t, "c2", steps[3].Entry.ID)
	assert.Equal(t, cancelled, steps[3].At)
}

func TestReplay_RejectsCorruptEntry(t *testing.T) {
	entries := []Entry{
		{ID: "bad", Kind: enum.TransactionKindCredit, Amount: d("0"), Status: enum.TransactionStatusPending, RecordedAt: time.Now()},
	}

	_, _, err := Replay(entries)
	assert.True(t, IsValidationError(err))
}
