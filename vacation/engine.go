/*
engine.go - Request lifecycle engine (the core)

PURPOSE:
  Owns the state machine per request and is the only writer of
  Request.Status:

      submit ──▶ PENDING ──▶ APPROVED ──▶ PROCESSED
                    │
                    └──────▶ DENIED

  All transitions are one-way. Each transition validates its preconditions
  (advance notice, recomputed day count, balance availability, role and
  team relationship), orchestrates the calculator/reconciler/detector, and
  returns the fully updated record so callers never need a second read.

TRANSITION RULES:
  submit:   employee self-service; >=14 days notice; computed days > 0;
            tentative balance stays >= 0 including the candidate; fails
            closed when the balance system is unavailable.
  decide:   manager over the employee's team; request must be PENDING.
  process:  HR; request must be APPROVED; commits only after the external
            deduction succeeds - on failure the record is untouched.

CONCURRENCY:
  Decisions rely on version-checked updates: of two concurrent decide calls
  exactly one commits, the other observes the moved status and fails with
  InvalidStateTransition. Processing additionally serializes per request id
  so at most one deduction call is ever in flight for a request. Submission
  serializes per employee so the balance check and the save see a
  consistent snapshot of that employee's own requests.

ERROR POLICY:
  Validation errors are detected before any external call. Unavailability
  and deduction failures never corrupt request state. Nothing is retried
  inside the engine.

SEE ALSO:
  - balance.go:  Reconciler
  - calendar.go: ComputeDays
  - overlap.go:  OverlapDetector
  - views.go:    Read-side projections (dashboard, calendars, queues)
*/
package vacation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// MinimumNoticeDays is the advance-notice window: a submission's start date
// must be at least this many calendar days after the current date.
const MinimumNoticeDays = 14

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Requests  RequestStore
	Holidays  HolidayStore
	Provider  BalanceProvider
	Directory TeamDirectory
	Audit     AuditLog
	Feed      HolidayFeed   // nil disables holiday import
	Cache     *BalanceCache // nil disables dashboard balance caching

	Reconciler *Reconciler
	Overlaps   *OverlapDetector
	Calendar   *Calendar

	// Now is the clock; overridable in tests.
	Now func() time.Time

	processLocks keyedLocks // per request id: one deduction in flight
	submitLocks  keyedLocks // per employee: check-then-save runs alone
}

// NewEngine wires an engine from its collaborators.
func NewEngine(requests RequestStore, holidays HolidayStore, provider BalanceProvider, directory TeamDirectory, audit AuditLog) *Engine {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Engine{
		Requests:   requests,
		Holidays:   holidays,
		Provider:   provider,
		Directory:  directory,
		Audit:      audit,
		Reconciler: &Reconciler{Provider: provider, Requests: requests},
		Overlaps:   &OverlapDetector{Requests: requests, Directory: directory},
		Calendar:   &Calendar{Store: holidays},
		Now:        time.Now,
	}
}

// =============================================================================
// SUBMIT - employee creates a PENDING request
// =============================================================================

type SubmitInput struct {
	EmployeeID EmployeeID
	StartDate  Date
	EndDate    Date
}

// Submit validates and persists a new request in status PENDING. The day
// count is recomputed server-side; the request code is assigned here,
// exactly once.
func (e *Engine) Submit(ctx context.Context, actor Actor, in SubmitInput) (*Request, error) {
	if in.StartDate.After(in.EndDate) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, in.StartDate, in.EndDate)
	}

	earliest := DateOf(e.Now()).AddDays(MinimumNoticeDays)
	if in.StartDate.Before(earliest) {
		return nil, fmt.Errorf("%w: start %s is before %s (%d days notice required)",
			ErrAdvanceNoticeViolation, in.StartDate, earliest, MinimumNoticeDays)
	}

	if actor.ID != in.EmployeeID {
		return nil, fmt.Errorf("%w: requests can only be submitted for oneself", ErrAuthorizationDenied)
	}

	holidays, err := e.Calendar.InRange(ctx, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	days, err := ComputeDays(in.StartDate, in.EndDate, holidays)
	if err != nil {
		return nil, err
	}
	if days == 0 {
		return nil, fmt.Errorf("%w: no working days in selected range", ErrInvalidRange)
	}

	// The balance check and the save must not interleave with another
	// submission by the same employee, or both could pass against the
	// same snapshot and overdraw the tentative balance.
	unlock := e.submitLocks.lock(string(in.EmployeeID))
	defer unlock()

	snapshot, err := e.Reconciler.BalanceFor(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if snapshot.Unavailable {
		// Fail closed: approving without a verified balance risks overdraft.
		e.recordAudit(ctx, AuditEntry{
			ActorID:    actor.ID,
			Action:     AuditSubmissionBlocked,
			EntityType: "vacation_request",
			EntityID:   "submission",
			Details:    snapshot.Message,
		})
		return nil, &BalanceUnavailableError{EmployeeID: in.EmployeeID, Reason: snapshot.Message}
	}
	remaining := snapshot.Tentative.Sub(decimal.NewFromInt(int64(days)))
	if remaining.IsNegative() {
		return nil, &InsufficientBalanceError{
			EmployeeID: in.EmployeeID,
			Tentative:  *snapshot.Tentative,
			Requested:  days,
		}
	}

	name, err := e.Directory.EmployeeName(ctx, in.EmployeeID)
	if err != nil {
		name = ""
	}

	now := e.Now()
	req := &Request{
		ID:           newRequestID(now),
		Code:         generateRequestCode(in.EmployeeID, in.StartDate, now),
		EmployeeID:   in.EmployeeID,
		EmployeeName: name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		NumberOfDays: days,
		Status:       StatusPending,
		SubmittedAt:  now,
	}
	if err := e.Requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	e.recordAudit(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditSubmitted,
		EntityType: "vacation_request",
		EntityID:   string(req.ID),
		Details:    fmt.Sprintf("code=%s days=%d", req.Code, req.NumberOfDays),
	})
	return req, nil
}

// PreviewDays computes the chargeable day count for a range without
// creating anything. Uses the same calculator as Submit so client and
// server can never disagree.
func (e *Engine) PreviewDays(ctx context.Context, start, end Date) (int, error) {
	holidays, err := e.Calendar.InRange(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return ComputeDays(start, end, holidays)
}

// =============================================================================
// DECIDE - manager approves or denies a PENDING request
// =============================================================================

type DecideInput struct {
	RequestID RequestID
	Approve   bool
	Note      string
}

// Decide performs the manager transition PENDING -> APPROVED or DENIED.
// A request can be decided at most once; a lost race surfaces as
// InvalidStateTransition, never as a silent success.
func (e *Engine) Decide(ctx context.Context, actor Actor, in DecideInput) (*Request, error) {
	attempted := "deny"
	if in.Approve {
		attempted = "approve"
	}

	req, err := e.Requests.GetRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, in.RequestID)
	}

	if err := e.authorizeManager(ctx, actor, req.EmployeeID); err != nil {
		return nil, err
	}

	if req.Status != StatusPending {
		return nil, &StateTransitionError{RequestID: req.ID, From: req.Status, Attempted: attempted}
	}

	now := e.Now()
	updated := req.Clone()
	if in.Approve {
		updated.Status = StatusApproved
	} else {
		updated.Status = StatusDenied
	}
	if in.Note != "" {
		updated.ManagerNote = in.Note
	}
	updated.DecidedAt = &now

	if err := e.Requests.UpdateRequest(ctx, updated); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return nil, e.lostRace(ctx, req.ID, req.Status, attempted)
		}
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	action := AuditDenied
	if in.Approve {
		action = AuditApproved
	}
	e.recordAudit(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: "vacation_request",
		EntityID:   string(updated.ID),
		Details:    in.Note,
	})
	return updated, nil
}

// =============================================================================
// PROCESS - HR deducts the balance and closes out an APPROVED request
// =============================================================================

type ProcessInput struct {
	RequestID RequestID
	HRNote    string
}

// Process performs the HR transition APPROVED -> PROCESSED. The external
// deduction happens first; if it fails the transition does not commit and
// the request remains APPROVED for the caller to retry. Processing is
// serialized per request id so the deduction is called at most once per
// transition.
func (e *Engine) Process(ctx context.Context, actor Actor, in ProcessInput) (*Request, error) {
	unlock := e.processLocks.lock(string(in.RequestID))
	defer unlock()

	req, err := e.Requests.GetRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, in.RequestID)
	}

	if !actor.HasRole(RoleHR) {
		return nil, fmt.Errorf("%w: processing requires the HR role", ErrAuthorizationDenied)
	}

	if req.Status != StatusApproved {
		return nil, &StateTransitionError{RequestID: req.ID, From: req.Status, Attempted: "process"}
	}

	e.recordAudit(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditProcessingAttempt,
		EntityType: "vacation_request",
		EntityID:   string(req.ID),
		Details:    "code=" + req.Code,
	})

	result := e.Provider.Deduct(ctx, req.EmployeeID, req.NumberOfDays, req.ID)
	if !result.Success {
		e.recordAudit(ctx, AuditEntry{
			ActorID:    actor.ID,
			Action:     AuditProcessingFailed,
			EntityType: "vacation_request",
			EntityID:   string(req.ID),
			Details:    result.Message,
		})
		return nil, &DeductionError{RequestID: req.ID, Unavailable: result.Unavailable, Message: result.Message}
	}

	now := e.Now()
	updated := req.Clone()
	updated.Status = StatusProcessed
	if in.HRNote != "" {
		updated.HRNote = in.HRNote
	}
	updated.ProcessedAt = &now

	if err := e.Requests.UpdateRequest(ctx, updated); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return nil, e.lostRace(ctx, req.ID, req.Status, "process")
		}
		return nil, fmt.Errorf("failed to persist processing: %w", err)
	}

	if e.Cache != nil {
		e.Cache.Invalidate(req.EmployeeID)
	}
	e.recordAudit(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditProcessed,
		EntityType: "vacation_request",
		EntityID:   string(updated.ID),
		Details:    "code=" + updated.Code,
	})
	return updated, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) authorizeManager(ctx context.Context, actor Actor, employee EmployeeID) error {
	if !actor.HasRole(RoleManager) {
		return fmt.Errorf("%w: decisions require the manager role", ErrAuthorizationDenied)
	}
	manages, err := e.Directory.ManagesEmployee(ctx, actor.ID, employee)
	if err != nil {
		return fmt.Errorf("failed to resolve team relationship: %w", err)
	}
	if !manages {
		return fmt.Errorf("%w: %s does not manage %s", ErrAuthorizationDenied, actor.ID, employee)
	}
	return nil
}

// lostRace reports a version conflict as InvalidStateTransition with the
// status that won, re-read when possible.
func (e *Engine) lostRace(ctx context.Context, id RequestID, fallback Status, attempted string) error {
	current, err := e.Requests.GetRequest(ctx, id)
	from := fallback
	if err == nil && current != nil {
		from = current.Status
	}
	return &StateTransitionError{RequestID: id, From: from, Attempted: attempted}
}

func (e *Engine) recordAudit(ctx context.Context, entry AuditEntry) {
	entry.At = e.Now()
	// Best effort: an audit write failure must never abort a transition.
	_ = e.Audit.Record(ctx, entry)
}

// idSeq disambiguates ids minted within the same clock reading.
var idSeq atomic.Int64

func newRequestID(now time.Time) RequestID {
	return RequestID(fmt.Sprintf("req-%d-%d", now.UnixNano(), idSeq.Add(1)))
}

func newHolidayID(now time.Time) HolidayID {
	return HolidayID(fmt.Sprintf("hol-%d-%d", now.UnixNano(), idSeq.Add(1)))
}

func generateRequestCode(employeeID EmployeeID, start Date, now time.Time) string {
	prefix := string(employeeID)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("VR-%s-%s-%d", prefix, start, now.UnixMilli())
}

// keyedLocks hands out one mutex per key.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *keyedLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
