package ledger

import (
	"errors"
	"fmt"

	"github.com/sangkips/khata-api/internal/domain/enum"
)

// ValidationError is returned for input the rule refuses to compute with.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError is returned when a status change must not touch the
// balance: unknown transaction, no-op transition or a transition out of a
// final status.
type InvalidTransitionError struct {
	TransactionID string
	From          enum.TransactionStatus
	To            enum.TransactionStatus
	NotFound      bool
}

func (e *InvalidTransitionError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("transaction %s not found", e.TransactionID)
	}
	if e.From == e.To {
		return fmt.Sprintf("transaction is already %s", e.To)
	}
	return fmt.Sprintf("cannot transition transaction from %s to %s", e.From, e.To)
}

// TransactionNotFound builds the error the caller raises when the transaction
// to transition does not exist.
func TransactionNotFound(id string) *InvalidTransitionError {
	return &InvalidTransitionError{TransactionID: id, NotFound: true}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
