package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a check or foreign key constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrCapacityExceeded is returned by Reserve when the slot has no free seat.
	ErrCapacityExceeded = errors.New("persistence: capacity exceeded")
)
