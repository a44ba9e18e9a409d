/*
Package vacation provides the vacation request lifecycle engine.

PURPOSE:
  This package contains the core domain types and algorithms for managing
  employee vacation requests: the one-way state machine per request, the
  rules gating each transition (advance notice, working-day computation,
  balance availability), and the reconciliation of the official balance
  reported by an external system against the days already committed by an
  employee's own open requests.

KEY CONCEPTS IN THIS FILE (types.go):
  - Request:         A vacation request and its lifecycle state
  - BalanceSnapshot: Official vs tentative balance at read time
  - Holiday:         An imported (or deprecated) non-working day
  - OverlapRecord:   Another request intersecting a candidate range
  - Actor:           The explicit identity/role context of every call

DESIGN PRINCIPLES:
  1. One writer: only the Engine mutates Request.Status
  2. Server-side truth: day counts are always recomputed, never trusted
  3. Precision: uses decimal.Decimal for balances from the system of record
  4. Explicit identity: every lifecycle call carries an Actor, no ambient state

SEE ALSO:
  - engine.go:   The lifecycle state machine
  - balance.go:  Balance reconciliation
  - calendar.go: Working-day computation
  - errors.go:   Error kinds and classification
*/
package vacation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string
type HolidayID string

// =============================================================================
// ROLES / ACTOR
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// Actor is the acting identity supplied to every lifecycle call. The engine
// trusts this context but does not manage authentication.
type Actor struct {
	ID    EmployeeID
	Roles []Role
}

func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// =============================================================================
// REQUEST - The authoritative vacation request record
// =============================================================================

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusDenied    Status = "DENIED"
	StatusProcessed Status = "PROCESSED"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusDenied || s == StatusProcessed
}

// Request is the authoritative record of a vacation request. NumberOfDays is
// always recomputed server-side from the range and the active holiday set.
// Code is assigned exactly once, at submission, and never changes.
type Request struct {
	ID           RequestID
	Code         string
	EmployeeID   EmployeeID
	EmployeeName string

	// Inclusive calendar dates, no time component.
	StartDate Date
	EndDate   Date

	NumberOfDays int
	Status       Status

	ManagerNote string
	HRNote      string

	SubmittedAt time.Time
	DecidedAt   *time.Time
	ProcessedAt *time.Time

	// Version is the optimistic concurrency token maintained by the store.
	// Updates only commit when the stored version matches.
	Version int64
}

// Clone returns a copy safe to mutate before a version-checked update.
func (r *Request) Clone() *Request {
	c := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

// =============================================================================
// HOLIDAY - Imported non-working days
// =============================================================================

type HolidayStatus string

const (
	HolidayImported   HolidayStatus = "IMPORTED"
	HolidayDeprecated HolidayStatus = "DEPRECATED"
)

// Holiday is a calendar holiday. Only IMPORTED holidays participate in
// working-day and overlap computations; DEPRECATED ones are retained for
// audit but ignored by calculations.
type Holiday struct {
	ID                HolidayID
	Date              Date
	Name              string
	Status            HolidayStatus
	DeprecationReason string
	CreatedAt         time.Time
}

// =============================================================================
// BALANCE SNAPSHOT - Ephemeral, recomputed on every read
// =============================================================================

// BalanceSnapshot is the reconciled view of an employee's balance for one
// request-handling cycle. When the external system of record is unreachable
// Unavailable is true and both balances are nil.
type BalanceSnapshot struct {
	Official    *decimal.Decimal
	Tentative   *decimal.Decimal
	Unavailable bool
	Message     string
}

// =============================================================================
// OVERLAP RECORD - Decision-support projection, never stored
// =============================================================================

// OverlapRecord references another request whose range intersects a
// candidate's. Shown to managers for context only; it does not block
// approval.
type OverlapRecord struct {
	RequestID    RequestID
	EmployeeID   EmployeeID
	EmployeeName string
	StartDate    Date
	EndDate      Date
	Status       Status
}
