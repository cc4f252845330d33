package application

import (
	"errors"
	"fmt"

	"github.com/example/reservation-desk/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrUnauthenticated is returned when no valid credential accompanies a request.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when an email and password pair does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned for blocked profiles.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when a session is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session was signed out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrInvalidToken is returned when an access token fails verification.
	ErrInvalidToken = errors.New("application: invalid access token")
	// ErrSlotFull is returned when every seat of a time slot is taken.
	ErrSlotFull = errors.New("application: time slot is full")
	// ErrAlreadyReserved is returned when the worker already holds a seat in the slot.
	ErrAlreadyReserved = errors.New("application: time slot already reserved")
	// ErrProfileSetupFailed is returned when a freshly created identity could not be
	// promoted and was rolled back.
	ErrProfileSetupFailed = errors.New("application: failed to create admin profile")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	if len(v.FieldErrors) == 1 {
		for field, msg := range v.FieldErrors {
			return fmt.Sprintf("validation failed: %s: %s", field, msg)
		}
	}
	return fmt.Sprintf("validation failed: %d fields", len(v.FieldErrors))
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// mapRepoError translates persistence sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("record", "violates a data constraint")
	default:
		return err
	}
}
