// Package domain defines the identifiers, descriptors, ports, and errors shared
// by the warehouse client and its adapters.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., the table already exists).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnsupportedError is returned for table kinds the client cannot read, and for
// views or queries requested while view materialization is disabled. Param is
// set in the latter case and names the switch the caller has to flip.
type UnsupportedError struct {
	Kind    TableKind
	Table   string
	Param   string
	Message string
}

func (e *UnsupportedError) Error() string { return e.Message }

// RemoteJobError reports a job that reached a terminal error state, or that
// finished without reporting a status at all.
type RemoteJobError struct {
	JobID string
	Err   error
}

func (e *RemoteJobError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("remote job failed: %v", e.Err)
	}
	return fmt.Sprintf("remote job %s failed: %v", e.JobID, e.Err)
}

func (e *RemoteJobError) Unwrap() error { return e.Err }

// InterruptedError reports a local wait that was cancelled or timed out.
// It unwraps to the context error so errors.Is(err, context.Canceled) holds.
type InterruptedError struct {
	JobID string
	Err   error
}

func (e *InterruptedError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("wait interrupted: %v", e.Err)
	}
	return fmt.Sprintf("wait for job %s interrupted: %v", e.JobID, e.Err)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// MaterializationError reports a failure anywhere in the
// materialize-then-cache sequence.
type MaterializationError struct {
	SQL string
	Err error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("error creating destination table using the following query: [%s]: %v", e.SQL, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrViewsDisabled creates the UnsupportedError returned when a view or query
// read is attempted while materialization is turned off.
func ErrViewsDisabled(param string) *UnsupportedError {
	return &UnsupportedError{
		Param: param,
		Message: fmt.Sprintf("Views are not enabled. You can enable views by setting '%s' to true. "+
			"Notice additional cost may occur.", param),
	}
}

// ErrUnsupportedKind creates the UnsupportedError returned for unreadable table kinds.
func ErrUnsupportedKind(kind TableKind, id TableID) *UnsupportedError {
	return &UnsupportedError{
		Kind:    kind,
		Table:   id.FullyQualifiedName(),
		Message: fmt.Sprintf("Table type '%s' of table '%s.%s' is not supported", kind, id.Dataset, id.Table),
	}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
