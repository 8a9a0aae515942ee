// Package service provides application-level services for accounts, the
// balance ledger, tier subscriptions, and prediction task dispatch.
package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrInvalidAmount indicates a deposit or charge amount that is not
	// strictly positive. API layer should map this to HTTP 400 Bad Request.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDowngradeNotAllowed indicates an attempt to purchase a tier that is
	// lower-ranked than the account's currently active tier.
	// API layer should map this to HTTP 400 Bad Request.
	ErrDowngradeNotAllowed = errors.New("cannot downgrade to a lower tier while current tier is active")

	// ErrDispatchFailed indicates a task was persisted but could not be
	// published to the work queue. The task remains pending and retrievable.
	// API layer should map this to HTTP 500 Internal Server Error.
	ErrDispatchFailed = errors.New("task accepted but could not be dispatched to the work queue")
)

// LedgerServiceError is a custom error type for ledger service errors.
type LedgerServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for LedgerServiceError.
func (e *LedgerServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *LedgerServiceError) Unwrap() error {
	return e.Err
}

// NewLedgerServiceError creates a new LedgerServiceError.
func NewLedgerServiceError(operation, message string, err error) *LedgerServiceError {
	return &LedgerServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// DispatchServiceError is a custom error type for task dispatch errors.
type DispatchServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for DispatchServiceError.
func (e *DispatchServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *DispatchServiceError) Unwrap() error {
	return e.Err
}

// NewDispatchServiceError creates a new DispatchServiceError.
func NewDispatchServiceError(operation, message string, err error) *DispatchServiceError {
	return &DispatchServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
