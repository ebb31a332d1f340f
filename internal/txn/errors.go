package txn

import (
	"errors"
	"fmt"
)

var (
	// ErrBackend matches every *BackendError via errors.Is.
	ErrBackend = errors.New("docsql: backend error")

	// ErrScopeViolation is returned when a token-addressed call runs outside
	// an active scope, or a token is bound to two scopes at once. It is a
	// programming error, not a transient condition.
	ErrScopeViolation = errors.New("docsql: no active transaction scope")

	// ErrReadOnly is returned when a write is submitted to a ReadOnly transaction.
	ErrReadOnly = errors.New("docsql: write in read-only transaction")

	// ErrTxDone is returned when a statement is submitted after the
	// transaction finished.
	ErrTxDone = errors.New("docsql: transaction already finished")
)

// BackendError is a statement failure reported by the storage engine:
// constraint violations, malformed statements, I/O failures.
type BackendError struct {
	// Op names the logical operation ("put", "begin", "migrate", ...).
	Op string

	// Statement is the SQL text, empty for begin/commit failures.
	Statement string

	// Err is the engine-supplied error.
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the engine error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrBackend) match.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// IsBackendError returns true if err is or wraps a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
