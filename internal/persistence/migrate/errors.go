package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMigrationFile indicates a migration file name or body is malformed.
	ErrInvalidMigrationFile = errors.New("invalid migration file")
	// ErrDuplicateVersion indicates two files share a version number.
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch indicates an applied migration file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
	// ErrMigrationFailed indicates a migration statement failed to execute.
	ErrMigrationFailed = errors.New("migration execution failed")
)

// MigrationError wraps a failure with the migration it relates to.
type MigrationError struct {
	Version   string
	File      string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.File, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.File, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
