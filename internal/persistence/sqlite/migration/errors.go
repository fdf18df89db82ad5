package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed indicates that a migration execution failed.
	ErrMigrationFailed = errors.New("migration execution failed")

	// ErrInvalidMigrationFile indicates that a migration file is malformed.
	ErrInvalidMigrationFile = errors.New("invalid migration file format")

	// ErrDuplicateVersion indicates that multiple migrations share a version.
	ErrDuplicateVersion = errors.New("duplicate migration version")

	// ErrChecksumMismatch indicates that an applied migration changed on disk.
	ErrChecksumMismatch = errors.New("applied migration checksum mismatch")
)

// MigrationError wraps migration failures with the version and operation involved.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration error (%s): %s: %v", e.FilePath, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a new MigrationError with context.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{
		Version:   version,
		FilePath:  filePath,
		Operation: operation,
		Err:       err,
	}
}
