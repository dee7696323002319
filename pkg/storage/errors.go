package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when no usage record matches a lookup.
	ErrNotFound = errors.New("usage record not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store is closed")
)
