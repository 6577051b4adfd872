package repository

import (
	"context"
	"errors"
)

// ErrConcurrentUpdate is returned when a compare-and-swap write finds the row
// changed since it was read.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

// Transactor runs fn inside one database transaction. Repositories called
// with the ctx passed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
