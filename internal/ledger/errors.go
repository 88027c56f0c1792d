package ledger

import "errors"

// Runtime errors shared by every program.
var (
	// ErrNotFound is returned when no record exists at an address.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyInitialized is returned when creating a record at an
	// address that already holds one.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrUnauthorized is returned when the caller is not permitted to
	// perform an administrative mutation.
	ErrUnauthorized = errors.New("unauthorized")
)
