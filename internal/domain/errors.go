// Package domain defines core types, interfaces, and errors for the tabular store.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// EmptyInputError indicates an upload without a single non-blank line.
type EmptyInputError struct {
	Message string
}

func (e *EmptyInputError) Error() string { return e.Message }

// TableCreationError indicates the physical table for a dataset could not be
// created, either because the name is taken or the store rejected the DDL.
type TableCreationError struct {
	Table string
	Err   error
}

func (e *TableCreationError) Error() string {
	return fmt.Sprintf("create table %q: %v", e.Table, e.Err)
}

func (e *TableCreationError) Unwrap() error { return e.Err }

// IngestionError indicates a failure while loading rows into a dataset table.
// The enclosing transaction has been rolled back when this is returned.
type IngestionError struct {
	Table string
	Row   int // 1-based data row, 0 when not row specific
	Err   error
}

func (e *IngestionError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("ingest %q at row %d: %v", e.Table, e.Row, e.Err)
	}
	return fmt.Sprintf("ingest %q: %v", e.Table, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// QueryRejectedError indicates a statement that is not a read query.
// Rejected statements never reach the store and are not recorded in history.
type QueryRejectedError struct {
	Message string
}

func (e *QueryRejectedError) Error() string { return e.Message }

// QueryExecutionError wraps a store failure for an accepted statement.
// QueryID is set once the failure has been assigned a history record.
type QueryExecutionError struct {
	QueryID string
	Err     error
}

func (e *QueryExecutionError) Error() string { return e.Err.Error() }

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// RecorderFailure reports a history record that could not be persisted.
// It is logged and never returned to callers of the query path.
type RecorderFailure struct {
	QueryID string
	Err     error
}

func (e *RecorderFailure) Error() string {
	return fmt.Sprintf("record query %s: %v", e.QueryID, e.Err)
}

func (e *RecorderFailure) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrEmptyInput creates an EmptyInputError with a formatted message.
func ErrEmptyInput(format string, args ...interface{}) *EmptyInputError {
	return &EmptyInputError{Message: fmt.Sprintf(format, args...)}
}

// ErrQueryRejected creates a QueryRejectedError with a formatted message.
func ErrQueryRejected(format string, args ...interface{}) *QueryRejectedError {
	return &QueryRejectedError{Message: fmt.Sprintf(format, args...)}
}
