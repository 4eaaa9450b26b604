package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a referenced transaction or wallet is missing.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConstraintViolation indicates the store rejected a write, e.g. a
// missing owner id or a row-level security policy.
type ErrConstraintViolation struct {
	Table   string
	Code    string
	Message string
}

func (e *ErrConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation on %s [%s]: %s", e.Table, e.Code, e.Message)
}

// ErrSchemaMismatch indicates a column the write referenced does not exist
// in the deployed schema.
type ErrSchemaMismatch struct {
	Table  string
	Column string
}

func (e *ErrSchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: column '%s' missing on %s", e.Column, e.Table)
}

// ErrPartialFailure indicates a multi-step operation failed after some of
// its writes had already committed.
type ErrPartialFailure struct {
	Operation string
	Step      string
	Err       error
}

func (e *ErrPartialFailure) Error() string {
	return fmt.Sprintf("partial failure in %s at %s: %v", e.Operation, e.Step, e.Err)
}

func (e *ErrPartialFailure) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates an invalid or expired session token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
