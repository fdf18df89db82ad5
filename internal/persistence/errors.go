package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKey is returned when a write references a missing row or a
	// delete is blocked by dependent rows.
	ErrForeignKey = errors.New("persistence: foreign key violation")
)
