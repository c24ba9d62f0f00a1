package dao

import (
	"errors"
	"fmt"
)

// Refinements of AccessError that stores in this module wrap. Check them
// with errors.Is.
var (
	// ErrNotFound is returned when a mutation targets an identifier that is not stored
	ErrNotFound = errors.New("entity not found")

	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("store closed")

	// ErrIDOverflow is returned when the store has no identifier left in the int32 range
	ErrIDOverflow = errors.New("identifier space exhausted")

	// ErrInvalidEntity is returned when a value cannot be encoded or decoded
	ErrInvalidEntity = errors.New("invalid entity")
)

// AccessError is the single error kind returned by the strict operations of a
// Store. Op names the operation that failed and Err holds the cause.
type AccessError struct {
	Op  string
	Err error
}

func (e *AccessError) Error() string {
	if e.Err == nil {
		return "dao: " + e.Op
	}
	return fmt.Sprintf("dao: %s: %v", e.Op, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Wrap turns err into an AccessError for op. A nil err stays nil and an
// error that already is an AccessError is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AccessError
	if errors.As(err, &ae) {
		return err
	}
	return &AccessError{Op: op, Err: err}
}

// IsAccessError reports whether err is or wraps an AccessError.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
