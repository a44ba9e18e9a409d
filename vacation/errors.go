/*
errors.go - Centralized error kinds for the lifecycle engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers classify with errors.Is against the sentinels; structured
  errors carry the details and unwrap to a sentinel.

ERROR CATEGORIES:
  1. Validation errors  - detected before any external call
  2. Balance errors     - shortage vs unreachable system of record
  3. Transition errors  - illegal state machine moves, lost races
  4. Integration errors - external deduction failures (never corrupt state)

USAGE:
  if errors.Is(err, vacation.ErrInvalidStateTransition) {
      // request was already decided/processed
  }

SEE ALSO:
  - engine.go:  Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package vacation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when the start date is after the end date,
	// or when a range contains no chargeable working days.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrAdvanceNoticeViolation is returned when a submission's start date is
	// inside the minimum notice window. Evaluated before any external call.
	ErrAdvanceNoticeViolation = errors.New("advance notice violation")

	// ErrInsufficientBalance is returned when the tentative balance would go
	// negative after including the candidate request.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBalanceUnavailable is returned when the external system of record is
	// unreachable. Distinct from ErrInsufficientBalance: both block
	// submission but are reported differently to the caller.
	ErrBalanceUnavailable = errors.New("balance system unavailable")

	// ErrInvalidStateTransition is returned when a transition is not legal
	// from the request's current status, including double-decision and
	// double-processing attempts.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrExternalDeduction is returned when processing's deduction call
	// failed. The transition is not committed; the request stays APPROVED.
	ErrExternalDeduction = errors.New("external deduction failed")

	// ErrNotFound is returned for an unknown request id.
	ErrNotFound = errors.New("not found")

	// ErrAuthorizationDenied is returned when the actor lacks the required
	// role or team relationship.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrConcurrentModification is returned by stores when a version-checked
	// update detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports the shortage that blocked a submission.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Tentative  decimal.Decimal
	Requested  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: tentative %v, requested %d days", e.Tentative, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// BalanceUnavailableError reports why the system of record could not be read.
type BalanceUnavailableError struct {
	EmployeeID EmployeeID
	Reason     string
}

func (e *BalanceUnavailableError) Error() string {
	if e.Reason == "" {
		return "balance system unavailable"
	}
	return "balance system unavailable: " + e.Reason
}

func (e *BalanceUnavailableError) Unwrap() error { return ErrBalanceUnavailable }

// StateTransitionError reports an attempted transition that is not legal
// from the request's current status.
type StateTransitionError struct {
	RequestID RequestID
	From      Status
	Attempted string // "approve", "deny", "process"
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %s", e.Attempted, e.RequestID, e.From)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// DeductionError reports a failed external deduction during processing.
// Unavailable distinguishes "system unreachable" from an explicit rejection.
type DeductionError struct {
	RequestID   RequestID
	Unavailable bool
	Message     string
}

func (e *DeductionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("deduction failed for request %s", e.RequestID)
	}
	return fmt.Sprintf("deduction failed for request %s: %s", e.RequestID, e.Message)
}

func (e *DeductionError) Unwrap() error { return ErrExternalDeduction }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on a later attempt.
// The engine never retries internally; this guides the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBalanceUnavailable) ||
		errors.Is(err, ErrExternalDeduction) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrAdvanceNoticeViolation) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
