package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a context id is unknown.
	ErrNotFound = errors.New("context not found")

	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrCapacityExceeded is returned by the memory backend when storing a new
	// record would exceed its configured capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ValidationError describes a malformed payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError reports that a backend could not complete an operation as a
// whole: the backend was unreachable or an atomic batch did not commit.
type StorageError struct {
	Op      string
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Backend: backend, Err: err}
}
