package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConflict is returned when an insert would overlap a booking that a
	// racing writer committed after the caller's availability check.
	ErrConflict = errors.New("persistence: booking conflict")
)
