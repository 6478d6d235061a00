// Package domain defines core types, interfaces, and errors for the CLI and its ingestion core.
package domain

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitDiscrepancy = 3
	ExitUsage       = 64
)

// NotFoundError indicates a remote resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid user input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// SchemaError indicates a malformed table definition document.
type SchemaError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid table definition: %s: %s", e.Field, e.Message)
	}
	return "invalid table definition: " + e.Message
}

// RemoteError indicates that the engine rejected a statement or could not be reached.
type RemoteError struct {
	Statement string
	Err       error
}

func (e *RemoteError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("remote execution failed for %q: %v", e.Statement, e.Err)
	}
	return fmt.Sprintf("remote execution failed: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// PlanError indicates that an ingestion plan could not be built for the requested mode.
type PlanError struct {
	Message string
}

func (e *PlanError) Error() string { return "cannot plan ingestion: " + e.Message }

// UsageError indicates the command line was used incorrectly.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// ExitCode implements the CLI exit code contract.
func (e *UsageError) ExitCode() int { return ExitUsage }

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

// ErrSchema creates a SchemaError for the given document field.
func ErrSchema(field, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrPlan creates a PlanError with a formatted message.
func ErrPlan(format string, args ...interface{}) *PlanError {
	return &PlanError{Message: fmt.Sprintf(format, args...)}
}

// ErrUsage creates a UsageError with a formatted message.
func ErrUsage(format string, args ...interface{}) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// WrapRemote normalises any execution failure into a RemoteError.
// Errors that already carry a RemoteError are returned unchanged.
func WrapRemote(statement string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Statement: statement, Err: err}
}
