package ledger

import "errors"

// Errors returned by the ledger. Callers match them with errors.Is; the
// wrapped message carries the offending id or value.
var (
	// ErrValidation rejects malformed input before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrState is an operation the entity's current state does not allow.
	ErrState = errors.New("invalid state")

	// ErrReference names an order or position id that does not exist.
	ErrReference = errors.New("unknown reference")

	// ErrCapacity is a close larger than the position's remaining quantity.
	ErrCapacity = errors.New("insufficient quantity")

	// ErrMissingPrice is an account update without a usable quote for a
	// held symbol.
	ErrMissingPrice = errors.New("missing price")
)
