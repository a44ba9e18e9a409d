/*
store.go - Storage and collaborator interfaces

PURPOSE:
  Defines the persistence and directory contracts the engine depends on.
  Implementations live in vacation/store (memory, for tests/dev) and
  store/sqlite (production).

CONCURRENCY CONTRACT:
  UpdateRequest is version-checked: it commits only when the stored version
  equals Request.Version, incrementing it on success, and returns
  ErrConcurrentModification otherwise. This is how two concurrent decisions
  on the same PENDING request resolve to exactly one success.

SEE ALSO:
  - store/memory.go:        in-memory implementation
  - ../store/sqlite:        SQLite implementation
*/
package vacation

import (
	"context"
	"time"
)

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists vacation requests. Get* methods return (nil, nil)
// when the record does not exist.
type RequestStore interface {
	// SaveRequest inserts a new request. The record's Version starts at 1.
	SaveRequest(ctx context.Context, req *Request) error

	// GetRequest loads a request by id.
	GetRequest(ctx context.Context, id RequestID) (*Request, error)

	// UpdateRequest commits req if the stored version matches req.Version,
	// bumping the version. Returns ErrConcurrentModification on mismatch.
	UpdateRequest(ctx context.Context, req *Request) error

	// ListByEmployee returns the employee's requests in the given statuses
	// (all statuses when none given), ordered by submission time ascending.
	ListByEmployee(ctx context.Context, employeeID EmployeeID, statuses ...Status) ([]*Request, error)

	// ListByStatus returns all requests in a status, ordered by submission
	// time ascending. This is the live view behind the pending and
	// processing queues.
	ListByStatus(ctx context.Context, status Status) ([]*Request, error)

	// ListForEmployeesInRange returns requests (any status) of the given
	// employees whose [start,end] intersects the given range.
	ListForEmployeesInRange(ctx context.Context, employeeIDs []EmployeeID, start, end Date) ([]*Request, error)
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

// HolidayStore persists the holiday calendar.
type HolidayStore interface {
	// ListImported returns IMPORTED holidays whose date falls in [start, end].
	ListImported(ctx context.Context, start, end Date) ([]Holiday, error)

	// FindByDateAndName returns a holiday regardless of status, or nil.
	FindByDateAndName(ctx context.Context, date Date, name string) (*Holiday, error)

	// SaveHoliday inserts or updates a holiday.
	SaveHoliday(ctx context.Context, h Holiday) error

	// GetHoliday loads a holiday by id, nil when missing.
	GetHoliday(ctx context.Context, id HolidayID) (*Holiday, error)

	// ListImportedYears returns the distinct years having IMPORTED holidays,
	// ascending.
	ListImportedYears(ctx context.Context) ([]int, error)

	// ListImportedByYear returns the IMPORTED holidays of a year, by date.
	ListImportedByYear(ctx context.Context, year int) ([]Holiday, error)
}

// =============================================================================
// TEAM DIRECTORY
// =============================================================================

// TeamDirectory is the read-side roster collaborator: who is on whose team,
// and which employees a manager oversees. Account administration is outside
// the engine.
type TeamDirectory interface {
	// EmployeeName returns the display name for an employee, "" if unknown.
	EmployeeName(ctx context.Context, id EmployeeID) (string, error)

	// TeamMembersVisibleTo returns the employees sharing an active team with
	// the given user (including the user). Scopes overlap detection and
	// calendar reads.
	TeamMembersVisibleTo(ctx context.Context, id EmployeeID) ([]EmployeeID, error)

	// ManagesEmployee reports whether manager oversees employee through an
	// active team.
	ManagesEmployee(ctx context.Context, manager, employee EmployeeID) (bool, error)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

type AuditAction string

const (
	AuditSubmitted         AuditAction = "request_submitted"
	AuditSubmissionBlocked AuditAction = "submission_blocked"
	AuditApproved          AuditAction = "request_approved"
	AuditDenied            AuditAction = "request_denied"
	AuditProcessingAttempt AuditAction = "processing_attempt"
	AuditProcessed         AuditAction = "request_processed"
	AuditProcessingFailed  AuditAction = "processing_failed"
	AuditHolidayImport     AuditAction = "holiday_import"
	AuditHolidayDeprecated AuditAction = "holiday_deprecated"
)

// AuditEntry is one append-only audit record. Entries are best-effort:
// a failure to persist one never aborts the transition it describes.
type AuditEntry struct {
	ActorID    EmployeeID
	Action     AuditAction
	EntityType string
	EntityID   string
	Details    string
	At         time.Time
}

type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// NopAudit discards all entries. Used when auditing is disabled.
type NopAudit struct{}

func (NopAudit) Record(ctx context.Context, entry AuditEntry) error { return nil }
