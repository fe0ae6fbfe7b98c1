package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrProofInvalid: signature check failed. Security-relevant; callers
	// log it with the order id and never retry with different material.
	ErrProofInvalid      = errors.New("payment proof signature invalid")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError rejects malformed input before any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConflictError marks a duplicate or concurrent status transition. Benign
// races resolve to the current state instead of surfacing this.
type ConflictError struct {
	OrderID string
	Reason  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on order %s: %s", e.OrderID, e.Reason)
}

// GatewayError wraps an external payment provider failure. Retryable
// variants were already retried internally before surfacing.
type GatewayError struct {
	Retryable bool
	Status    int // HTTP status when available, 0 otherwise
	Err       error
}

func (e *GatewayError) Error() string {
	kind := "non-retryable"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("gateway (%s, status=%d): %v", kind, e.Status, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
