package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/enum"
)

// Entry is a recorded transaction as seen by Replay.
type Entry struct {
	ID         string
	Kind       enum.TransactionKind
	Amount     decimal.Decimal
	Status     enum.TransactionStatus
	RecordedAt time.Time
	// SettledAt is when the entry left Pending. Nil for open entries, and for
	// closed entries recorded before settlement times were kept.
	SettledAt *time.Time
}

// Step is one balance movement produced by Replay.
type Step struct {
	Entry      Entry
	Settlement bool
	At         time.Time
	Balance    decimal.Decimal
}

type event struct {
	entry      Entry
	settlement bool
	at         time.Time
	seq        int
}

// Replay derives a due from scratch by feeding every entry through Apply at
// its recording time and, for closed credits, through Transition at its
// settlement time. Events are ordered by time; ties keep recording order with
// a settlement right after its own recording.
func Replay(entries []Entry) (decimal.Decimal, []Step, error) {
	events := make([]event, 0, len(entries)*2)
	for i, e := range entries {
		events = append(events, event{entry: e, at: e.RecordedAt, seq: 2 * i})
		if e.Kind == enum.TransactionKindCredit && e.Status != enum.TransactionStatusPending {
			at := e.RecordedAt
			if e.SettledAt != nil && e.SettledAt.After(at) {
				at = *e.SettledAt
			}
			events = append(events, event{entry: e, settlement: true, at: at, seq: 2*i + 1})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].seq < events[j].seq
	})

	due := decimal.Zero
	steps := make([]Step, 0, len(events))
	for _, ev := range events {
		var err error
		if ev.settlement {
			due, err = Transition(due, ev.entry.Kind, ev.entry.Amount, enum.TransactionStatusPending, ev.entry.Status)
		} else {
			due, err = Apply(due, ev.entry.Kind, ev.entry.Amount)
		}
		if err != nil {
			return decimal.Zero, nil, err
		}
		steps = append(steps, Step{Entry: ev.entry, Settlement: ev.settlement, At: ev.at, Balance: due})
	}

	return due, steps, nil
}
