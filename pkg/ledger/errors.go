package ledger

import (
	"errors"

	"pizzapos/pkg/catalog"
)

var (
	// ErrEmptyOrder is returned when pricing or committing a cart with no lines.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrOrderNotFound is returned by Order for an id that was never assigned.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUnknownItem aliases catalog.ErrUnknownItem for callers that only import ledger.
	ErrUnknownItem = catalog.ErrUnknownItem
	// ErrLedgerInconsistent means the running accumulator no longer matches the
	// committed orders. It is a bug, never a caller error.
	ErrLedgerInconsistent = errors.New("ledger inconsistent")
)
