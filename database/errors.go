package database

import "fmt"

// DBError carries the store operation that failed alongside the driver
// error, so a pipeline outcome can say which query broke.
type DBError struct {
	Operation string
	Err       error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap exposes the driver error to errors.Is/As
func (e *DBError) Unwrap() error {
	return e.Err
}

// WrapDBError attaches the operation name to a store error. Nil passes
// through so callers can wrap unconditionally.
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{Operation: operation, Err: err}
}

// NotFoundError distinguishes a missing row from a query failure. Callers
// that can proceed without the row branch on it with errors.As.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundErrorWithID builds a NotFoundError for a keyed lookup
func NewNotFoundErrorWithID(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError rejects a write whose input cannot be stored, such as a
// backtest result with no run id.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for one field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
