// Package ledger holds the balance reconciliation rule: how a customer's due
// amount moves when a transaction is created, settled, cancelled or removed.
// Every function here is pure; callers own persistence and atomicity.
package ledger

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/sangkips/khata-api/internal/domain/enum"
)

// MoneyPlaces is the number of decimal places money is stored with.
const MoneyPlaces = 2

// ValidateAmount converts an inbound amount into money. NaN, infinities and
// anything that does not round to a positive amount are rejected.
func ValidateAmount(amount float64) (decimal.Decimal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must be a finite number"}
	}
	if amount <= 0 {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}

	d := decimal.NewFromFloat(amount).Round(MoneyPlaces)
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must be at least 0.01"}
	}
	return d, nil
}

// ValidateDue checks a due amount supplied from outside the ledger, such as a
// direct override.
func ValidateDue(due float64) (decimal.Decimal, error) {
	if math.IsNaN(due) || math.IsInf(due, 0) {
		return decimal.Zero, &ValidationError{Field: "total_due", Message: "must be a finite number"}
	}
	if due < 0 {
		return decimal.Zero, &ValidationError{Field: "total_due", Message: "must not be negative"}
	}
	return decimal.NewFromFloat(due).Round(MoneyPlaces), nil
}

// ParseKind maps a kind name onto the closed set of kinds.
func ParseKind(s string) (enum.TransactionKind, error) {
	kind, err := enum.ParseTransactionKind(s)
	if err != nil {
		return "", &ValidationError{Field: "kind", Message: "must be one of Credit, Payment, Adjustment"}
	}
	return kind, nil
}

// ParseStatus maps a status name onto Pending, Paid or Cancelled.
func ParseStatus(s string) (enum.TransactionStatus, error) {
	status, err := enum.ParseTransactionStatus(s)
	if err != nil {
		return "", &ValidationError{Field: "status", Message: "must be one of Pending, Paid, Completed, Cancelled"}
	}
	return status, nil
}

// InitialStatus is the status a transaction of the given kind is recorded with.
// Credits stay open until settled; payments and adjustments are final.
func InitialStatus(kind enum.TransactionKind) enum.TransactionStatus {
	if kind == enum.TransactionKindCredit {
		return enum.TransactionStatusPending
	}
	return enum.TransactionStatusPaid
}

// Apply returns the due after recording a new transaction.
func Apply(currentDue decimal.Decimal, kind enum.TransactionKind, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := checkOperands(currentDue, amount); err != nil {
		return currentDue, err
	}

	switch kind {
	case enum.TransactionKindCredit:
		return currentDue.Add(amount), nil
	case enum.TransactionKindPayment, enum.TransactionKindAdjustment:
		return subtractFloored(currentDue, amount), nil
	}
	return currentDue, &ValidationError{Field: "kind", Message: "must be one of Credit, Payment, Adjustment"}
}

// Transition returns the due after moving a transaction from one status to
// another. Only Pending to Paid and Pending to Cancelled are allowed. Settling
// or cancelling a credit takes its amount off the due; payments and
// adjustments were fully applied at creation and are not touched again.
func Transition(currentDue decimal.Decimal, kind enum.TransactionKind, amount decimal.Decimal, from, to enum.TransactionStatus) (decimal.Decimal, error) {
	if from == to {
		return currentDue, &InvalidTransitionError{From: from, To: to}
	}
	if from != enum.TransactionStatusPending ||
		(to != enum.TransactionStatusPaid && to != enum.TransactionStatusCancelled) {
		return currentDue, &InvalidTransitionError{From: from, To: to}
	}
	if err := checkOperands(currentDue, amount); err != nil {
		return currentDue, err
	}

	switch kind {
	case enum.TransactionKindCredit:
		return subtractFloored(currentDue, amount), nil
	case enum.TransactionKindPayment, enum.TransactionKindAdjustment:
		return currentDue, nil
	}
	return currentDue, &ValidationError{Field: "kind", Message: "must be one of Credit, Payment, Adjustment"}
}

// Reverse returns the due after deleting a transaction in the given status.
// Only the part of the transaction still live in the due is undone: an open
// credit is taken off, a settled or cancelled credit has nothing left to undo,
// and a payment or adjustment is added back.
func Reverse(currentDue decimal.Decimal, kind enum.TransactionKind, amount decimal.Decimal, status enum.TransactionStatus) (decimal.Decimal, error) {
	if err := checkOperands(currentDue, amount); err != nil {
		return currentDue, err
	}

	switch kind {
	case enum.TransactionKindCredit:
		if status == enum.TransactionStatusPending {
			return subtractFloored(currentDue, amount), nil
		}
		return currentDue, nil
	case enum.TransactionKindPayment, enum.TransactionKindAdjustment:
		return currentDue.Add(amount), nil
	}
	return currentDue, &ValidationError{Field: "kind", Message: "must be one of Credit, Payment, Adjustment"}
}

func checkOperands(currentDue, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	if currentDue.IsNegative() {
		return &ValidationError{Field: "total_due", Message: "must not be negative"}
	}
	return nil
}

func subtractFloored(due, amount decimal.Decimal) decimal.Decimal {
	next := due.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}
