package sync

import "errors"

// Engine-level errors. External API failures carry their own taxonomy in
// pkg/external; these cover the ledger side.
var (
	ErrRecordNotFound    = errors.New("inventory record not found")
	ErrNotLinked         = errors.New("product is not linked to a storefront inventory item")
	ErrSyncDisabled      = errors.New("sync is disabled for this product")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnsupportedMode   = errors.New("operation not supported in this stock mode")
	ErrNegativeLevel     = errors.New("reported stock level is negative")
)
