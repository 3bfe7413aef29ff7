package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("conflict")

	// ErrTooLong is returned when a value exceeds its column's length.
	ErrTooLong = errors.New("value too long")
)

const (
	uniqueViolation = "23505"
	stringTooLong   = "22001"
)

// writeError maps constraint failures of an insert or update to store errors.
func writeError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return ErrConflict
	case stringTooLong:
		return fmt.Errorf("%w: %s", ErrTooLong, pqErr.Message)
	}
	return err
}
