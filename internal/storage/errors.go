package storage

import "errors"

// Storage errors for append-only audit stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Audit stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: audit store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
