package vacation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimbus-hr/vacation-engine/vacation"
	"github.com/nimbus-hr/vacation-engine/vacation/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeProvider is a controllable stand-in for the external balance system.
type fakeProvider struct {
	mu sync.Mutex

	balance       decimal.Decimal
	unavailable   bool
	officialCalls int

	deductRejected    bool
	deductUnavailable bool
	deductCalls       int
}

func (p *fakeProvider) OfficialBalance(_ context.Context, _ vacation.EmployeeID) vacation.BalanceResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.officialCalls++
	if p.unavailable {
		return vacation.UnavailableBalance("balance service down")
	}
	return vacation.AvailableBalance(p.balance)
}

func (p *fakeProvider) Deduct(_ context.Context, _ vacation.EmployeeID, days int, _ vacation.RequestID) vacation.DeductionResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deductCalls++
	switch {
	case p.deductUnavailable:
		return vacation.DeductionResult{Unavailable: true, Message: "deduction service down"}
	case p.deductRejected:
		return vacation.DeductionResult{Message: "deduction rejected"}
	default:
		p.balance = p.balance.Sub(decimal.NewFromInt(int64(days)))
		return vacation.DeductionResult{Success: true}
	}
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deductCalls
}

// Fixed clock: Sunday 2025-06-01. The earliest permissible start date is
// therefore 2025-06-15.
var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// newTestEngine wires an engine over the in-memory store with a small
// roster: mgr-1 manages emp-1 and emp-2; hr-1 and adm-1 carry roles only.
func newTestEngine(t *testing.T) (*vacation.Engine, *store.Memory, *fakeProvider) {
	t.Helper()
	mem := store.NewMemory()
	mem.AddEmployee("emp-1", "Avery Quinn")
	mem.AddEmployee("emp-2", "Blake Osei")
	mem.AddEmployee("mgr-1", "Morgan Hale")
	mem.AddTeam("team-1", "mgr-1", "emp-1", "emp-2")

	provider := &fakeProvider{balance: decimal.NewFromInt(20)}
	engine := vacation.NewEngine(mem, mem, provider, mem, mem)
	engine.Now = func() time.Time { return testNow }
	return engine, mem, provider
}

func employee(id string) vacation.Actor {
	return vacation.Actor{ID: vacation.EmployeeID(id), Roles: []vacation.Role{vacation.RoleEmployee}}
}

func manager(id string) vacation.Actor {
	return vacation.Actor{ID: vacation.EmployeeID(id), Roles: []vacation.Role{vacation.RoleEmployee, vacation.RoleManager}}
}

func hr(id string) vacation.Actor {
	return vacation.Actor{ID: vacation.EmployeeID(id), Roles: []vacation.Role{vacation.RoleEmployee, vacation.RoleHR}}
}

func admin(id string) vacation.Actor {
	return vacation.Actor{ID: vacation.EmployeeID(id), Roles: []vacation.Role{vacation.RoleAdmin}}
}

func submit(t *testing.T, engine *vacation.Engine, who, start, end string) *vacation.Request {
	t.Helper()
	req, err := engine.Submit(context.Background(), employee(who), vacation.SubmitInput{
		EmployeeID: vacation.EmployeeID(who),
		StartDate:  mustDate(t, start),
		EndDate:    mustDate(t, end),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return req
}

func approve(t *testing.T, engine *vacation.Engine, id vacation.RequestID) *vacation.Request {
	t.Helper()
	req, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: id,
		Approve:   true,
	})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	return req
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_CreatesPendingRequest(t *testing.T) {
	// GIVEN: A valid range beyond the notice window
	// WHEN: The employee submits
	// THEN: A PENDING request with server-computed days and a request code

	engine, _, _ := newTestEngine(t)

	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	if req.Status != vacation.StatusPending {
		t.Errorf("expected PENDING, got %s", req.Status)
	}
	if req.NumberOfDays != 5 {
		t.Errorf("expected 5 days, got %d", req.NumberOfDays)
	}
	if !strings.HasPrefix(req.Code, "VR-emp-1-2025-07-07-") {
		t.Errorf("unexpected request code %q", req.Code)
	}
	if req.EmployeeName != "Avery Quinn" {
		t.Errorf("expected employee name to be resolved, got %q", req.EmployeeName)
	}
	if req.Version != 1 {
		t.Errorf("expected version 1, got %d", req.Version)
	}
}

func TestSubmit_HolidayReducesDays(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	mem.SaveHoliday(context.Background(), imported(t, "2025-07-09", "Festival"))

	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	if req.NumberOfDays != 4 {
		t.Errorf("expected 4 days, got %d", req.NumberOfDays)
	}
}

func TestSubmit_InsideNoticeWindow_Rejected(t *testing.T) {
	// GIVEN: Today is 2025-06-01, so starts before 2025-06-15 are too soon
	engine, _, _ := newTestEngine(t)

	_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-06-13"),
		EndDate:    mustDate(t, "2025-06-20"),
	})
	if !errors.Is(err, vacation.ErrAdvanceNoticeViolation) {
		t.Fatalf("expected advance notice violation, got %v", err)
	}
}

func TestSubmit_ExactlyAtNoticeBoundary_Accepted(t *testing.T) {
	// 2025-06-16 is the first Monday at/after the 14-day boundary
	engine, _, _ := newTestEngine(t)
	submit(t, engine, "emp-1", "2025-06-16", "2025-06-16")
}

func TestSubmit_StartAfterEnd_Rejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-11"),
		EndDate:    mustDate(t, "2025-07-07"),
	})
	if !errors.Is(err, vacation.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestSubmit_WeekendOnlyRange_Rejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-05"),
		EndDate:    mustDate(t, "2025-07-06"),
	})
	if !errors.Is(err, vacation.ErrInvalidRange) {
		t.Fatalf("expected invalid range for zero working days, got %v", err)
	}
}

func TestSubmit_ForSomeoneElse_Rejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Submit(context.Background(), employee("emp-2"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-07"),
		EndDate:    mustDate(t, "2025-07-11"),
	})
	if !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestSubmit_InsufficientBalance_Rejected(t *testing.T) {
	// GIVEN: Official balance 3, request of 5 working days
	engine, _, provider := newTestEngine(t)
	provider.balance = decimal.NewFromInt(3)

	_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-07"),
		EndDate:    mustDate(t, "2025-07-11"),
	})
	if !errors.Is(err, vacation.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	var detail *vacation.InsufficientBalanceError
	if !errors.As(err, &detail) {
		t.Fatal("expected structured InsufficientBalanceError")
	}
	if detail.Requested != 5 {
		t.Errorf("expected requested 5, got %d", detail.Requested)
	}
}

func TestSubmit_ExactBalance_Accepted(t *testing.T) {
	// Tentative may reach exactly zero; only negative blocks.
	engine, _, provider := newTestEngine(t)
	provider.balance = decimal.NewFromInt(5)

	submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
}

func TestSubmit_PendingRequestsReduceTentative(t *testing.T) {
	// GIVEN: Balance 8 with an existing 5-day PENDING request
	// WHEN: Submitting another 5-day request
	// THEN: Tentative 8-5=3 < 5, so the submission is blocked

	engine, _, provider := newTestEngine(t)
	provider.balance = decimal.NewFromInt(8)

	submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-14"),
		EndDate:    mustDate(t, "2025-07-18"),
	})
	if !errors.Is(err, vacation.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestSubmit_ConcurrentSubmissions_CannotOverdraw(t *testing.T) {
	// GIVEN: Official balance 5 and two racing 5-day submissions
	// WHEN: Both run concurrently for the same employee
	// THEN: Exactly one commits; the loser sees InsufficientBalance and
	//       the tentative balance never goes negative

	engine, mem, provider := newTestEngine(t)
	provider.balance = decimal.NewFromInt(5)

	ranges := [][2]vacation.Date{
		{mustDate(t, "2025-07-07"), mustDate(t, "2025-07-11")},
		{mustDate(t, "2025-07-14"), mustDate(t, "2025-07-18")},
	}
	var wg sync.WaitGroup
	results := make([]error, len(ranges))
	for i, r := range ranges {
		wg.Add(1)
		go func(slot int, start, end vacation.Date) {
			defer wg.Done()
			_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
				EmployeeID: "emp-1",
				StartDate:  start,
				EndDate:    end,
			})
			results[slot] = err
		}(i, r[0], r[1])
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, vacation.ErrInsufficientBalance) {
			t.Errorf("loser should see insufficient balance, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one submission to win, got %d", succeeded)
	}

	stored, err := mem.ListByEmployee(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected exactly one stored request, got %d", len(stored))
	}
}

func TestSubmit_BalanceUnavailable_FailsClosed(t *testing.T) {
	// GIVEN: The system of record is unreachable
	// WHEN: The employee submits a valid request
	// THEN: The submission is blocked and audited, nothing is stored

	engine, mem, provider := newTestEngine(t)
	provider.unavailable = true

	_, err := engine.Submit(context.Background(), employee("emp-1"), vacation.SubmitInput{
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-07"),
		EndDate:    mustDate(t, "2025-07-11"),
	})
	if !errors.Is(err, vacation.ErrBalanceUnavailable) {
		t.Fatalf("expected balance unavailable, got %v", err)
	}
	if !vacation.IsRetryable(err) {
		t.Error("balance unavailability should be retryable")
	}

	stored, _ := mem.ListByEmployee(context.Background(), "emp-1")
	if len(stored) != 0 {
		t.Errorf("expected no stored requests, got %d", len(stored))
	}

	blocked := false
	for _, entry := range mem.AuditEntries() {
		if entry.Action == vacation.AuditSubmissionBlocked {
			blocked = true
		}
	}
	if !blocked {
		t.Error("expected a submission_blocked audit entry")
	}
}

// =============================================================================
// DECISION
// =============================================================================

func TestDecide_Approve(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	updated, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: req.ID,
		Approve:   true,
		Note:      "enjoy",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != vacation.StatusApproved {
		t.Errorf("expected APPROVED, got %s", updated.Status)
	}
	if updated.ManagerNote != "enjoy" {
		t.Errorf("expected manager note, got %q", updated.ManagerNote)
	}
	if updated.DecidedAt == nil {
		t.Error("expected DecidedAt to be set")
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2 after decision, got %d", updated.Version)
	}
}

func TestDecide_Deny(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	updated, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: req.ID,
		Approve:   false,
		Note:      "short staffed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != vacation.StatusDenied {
		t.Errorf("expected DENIED, got %s", updated.Status)
	}
}

func TestDecide_DeniedRequestFreesTentativeBalance(t *testing.T) {
	// GIVEN: Balance 8, a 5-day request denied
	// WHEN: Submitting another 5-day request
	// THEN: The denied request no longer counts against tentative

	engine, _, provider := newTestEngine(t)
	provider.balance = decimal.NewFromInt(8)

	first := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	if _, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: first.ID,
	}); err != nil {
		t.Fatalf("deny failed: %v", err)
	}

	submit(t, engine, "emp-1", "2025-07-14", "2025-07-18")
}

func TestDecide_NotManagerOfEmployee_Rejected(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	mem.AddEmployee("mgr-2", "Rowan Iyer")
	mem.AddTeam("team-2", "mgr-2")

	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	_, err := engine.Decide(context.Background(), manager("mgr-2"), vacation.DecideInput{
		RequestID: req.ID,
		Approve:   true,
	})
	if !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestDecide_WithoutManagerRole_Rejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	_, err := engine.Decide(context.Background(), employee("emp-2"), vacation.DecideInput{
		RequestID: req.ID,
		Approve:   true,
	})
	if !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestDecide_UnknownRequest_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: "req-missing",
		Approve:   true,
	})
	if !vacation.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecide_AlreadyDecided_Rejected(t *testing.T) {
	// GIVEN: An already-denied request
	// WHEN: A manager tries to approve it
	// THEN: InvalidStateTransition; the denial stands

	engine, mem, _ := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	if _, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: req.ID,
	}); err != nil {
		t.Fatalf("deny failed: %v", err)
	}

	_, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
		RequestID: req.ID,
		Approve:   true,
	})
	if !errors.Is(err, vacation.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid state transition, got %v", err)
	}

	current, _ := mem.GetRequest(context.Background(), req.ID)
	if current.Status != vacation.StatusDenied {
		t.Errorf("denial should stand, got %s", current.Status)
	}
}

func TestDecide_ConcurrentDecisions_ExactlyOneWins(t *testing.T) {
	// GIVEN: One PENDING request and two racing decisions
	// WHEN: Approve and deny run concurrently
	// THEN: Exactly one commits; the loser sees InvalidStateTransition

	engine, mem, _ := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, approveIt := range []bool{true, false} {
		wg.Add(1)
		go func(slot int, approveIt bool) {
			defer wg.Done()
			_, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{
				RequestID: req.ID,
				Approve:   approveIt,
			})
			results[slot] = err
		}(i, approveIt)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, vacation.ErrInvalidStateTransition) {
			t.Errorf("loser should see invalid state transition, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one decision to win, got %d", succeeded)
	}

	current, _ := mem.GetRequest(context.Background(), req.ID)
	if current.Status != vacation.StatusApproved && current.Status != vacation.StatusDenied {
		t.Errorf("expected a decided status, got %s", current.Status)
	}
}

// =============================================================================
// PROCESSING
// =============================================================================

func TestProcess_DeductsAndMarksProcessed(t *testing.T) {
	engine, _, provider := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)

	processed, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{
		RequestID: req.ID,
		HRNote:    "payroll cycle 14",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed.Status != vacation.StatusProcessed {
		t.Errorf("expected PROCESSED, got %s", processed.Status)
	}
	if processed.HRNote != "payroll cycle 14" {
		t.Errorf("expected HR note, got %q", processed.HRNote)
	}
	if processed.ProcessedAt == nil {
		t.Error("expected ProcessedAt to be set")
	}
	if provider.calls() != 1 {
		t.Errorf("expected exactly one deduction call, got %d", provider.calls())
	}
	if !provider.balance.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected balance 15 after deduction, got %v", provider.balance)
	}
}

func TestProcess_WithoutHRRole_Rejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)

	_, err := engine.Process(context.Background(), manager("mgr-1"), vacation.ProcessInput{RequestID: req.ID})
	if !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestProcess_PendingRequest_Rejected(t *testing.T) {
	engine, _, provider := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	_, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID})
	if !errors.Is(err, vacation.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
	if provider.calls() != 0 {
		t.Errorf("no deduction should happen for a PENDING request, got %d calls", provider.calls())
	}
}

func TestProcess_DeductionUnavailable_RequestStaysApproved(t *testing.T) {
	// GIVEN: The deduction endpoint is unreachable
	// WHEN: HR processes an APPROVED request
	// THEN: The error is retryable and the request remains APPROVED

	engine, mem, provider := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)
	provider.deductUnavailable = true

	_, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID})
	if !errors.Is(err, vacation.ErrExternalDeduction) {
		t.Fatalf("expected external deduction error, got %v", err)
	}
	if !vacation.IsRetryable(err) {
		t.Error("an unavailable deduction should be retryable")
	}

	current, _ := mem.GetRequest(context.Background(), req.ID)
	if current.Status != vacation.StatusApproved {
		t.Errorf("request should remain APPROVED, got %s", current.Status)
	}

	// Retry succeeds once the service is back.
	provider.deductUnavailable = false
	processed, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if processed.Status != vacation.StatusProcessed {
		t.Errorf("expected PROCESSED after retry, got %s", processed.Status)
	}
}

func TestProcess_DeductionRejected_SurfacesMessage(t *testing.T) {
	engine, _, provider := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)
	provider.deductRejected = true

	_, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID})

	var detail *vacation.DeductionError
	if !errors.As(err, &detail) {
		t.Fatalf("expected DeductionError, got %v", err)
	}
	if detail.Unavailable {
		t.Error("an explicit rejection is not an unavailability")
	}
	if detail.Message != "deduction rejected" {
		t.Errorf("unexpected message %q", detail.Message)
	}
}

func TestProcess_AlreadyProcessed_NoSecondDeduction(t *testing.T) {
	engine, _, provider := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)

	if _, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID}); err != nil {
		t.Fatalf("first processing failed: %v", err)
	}

	_, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID})
	if !errors.Is(err, vacation.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
	if provider.calls() != 1 {
		t.Errorf("expected exactly one deduction call, got %d", provider.calls())
	}
}

func TestProcess_ConcurrentProcessing_SingleDeduction(t *testing.T) {
	// GIVEN: Two HR operators racing to process the same request
	// WHEN: Both Process calls run concurrently
	// THEN: One deduction happens; the loser sees InvalidStateTransition

	engine, mem, provider := newTestEngine(t)
	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID})
			results[slot] = err
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, vacation.ErrInvalidStateTransition) {
			t.Errorf("loser should see invalid state transition, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one processing to win, got %d", succeeded)
	}
	if provider.calls() != 1 {
		t.Fatalf("expected exactly one deduction call, got %d", provider.calls())
	}

	current, _ := mem.GetRequest(context.Background(), req.ID)
	if current.Status != vacation.StatusProcessed {
		t.Errorf("expected PROCESSED, got %s", current.Status)
	}
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestPreviewDays_MatchesSubmitComputation(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	mem.SaveHoliday(context.Background(), imported(t, "2025-07-09", "Festival"))

	days, err := engine.PreviewDays(context.Background(), mustDate(t, "2025-07-07"), mustDate(t, "2025-07-11"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 4 {
		t.Errorf("expected 4 days, got %d", days)
	}

	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	if req.NumberOfDays != days {
		t.Errorf("preview %d and submit %d disagree", days, req.NumberOfDays)
	}
}
