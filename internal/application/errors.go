package application

import (
	"errors"
	"fmt"

	"github.com/example/event-manager/internal/persistence"
)

var (
	// ErrUnauthorized is returned when no authenticated principal is present.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the principal's role lacks the required capability.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when an operation would break a referential or account rule.
	ErrConflict = errors.New("application: conflict")
	// ErrInUse is returned when a resource cannot be deleted while other rows reference it.
	ErrInUse = fmt.Errorf("%w: resource is in use", ErrConflict)
	// ErrLastAdmin is returned when an operation would leave no administrator account.
	ErrLastAdmin = fmt.Errorf("%w: at least one administrator is required", ErrConflict)
	// ErrSelfDelete is returned when a user attempts to delete their own account.
	ErrSelfDelete = fmt.Errorf("%w: users cannot delete their own account", ErrConflict)
	// ErrInvalidCredentials is returned for any failed login, without saying which field was wrong.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session was logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// NewValidationError returns a ValidationError holding a single field issue.
func NewValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error. Callers outside the package use
// it for input that fails to parse before reaching a service.
func (v *ValidationError) Add(field, message string) {
	v.add(field, message)
}

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

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrForeignKey):
		return fmt.Errorf("%w: %v", ErrInUse, err)
	default:
		return err
	}
}

// duplicateAsField reports a duplicate value as a field error so forms can show it inline.
func duplicateAsField(err error, field, message string) error {
	if errors.Is(err, ErrAlreadyExists) {
		return NewValidationError(field, message)
	}
	return err
}
