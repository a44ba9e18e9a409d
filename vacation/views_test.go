package vacation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

// =============================================================================
// QUEUES
// =============================================================================

func TestPendingQueue_ScopedToVisibleTeam(t *testing.T) {
	// GIVEN: Pending requests from a team member and from an outsider
	// WHEN: The manager reads the pending queue
	// THEN: Only the team member's request shows, oldest first

	engine, mem, _ := newTestEngine(t)
	mem.AddEmployee("out-1", "Jordan Pike")
	mem.AddTeam("team-other", "out-1")

	first := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	second := submit(t, engine, "emp-2", "2025-07-14", "2025-07-18")
	submit(t, engine, "out-1", "2025-07-07", "2025-07-11")

	queue, err := engine.PendingQueue(context.Background(), manager("mgr-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("expected 2 pending requests, got %d", len(queue))
	}
	if queue[0].ID != first.ID || queue[1].ID != second.ID {
		t.Errorf("expected submission order [%s %s], got [%s %s]",
			first.ID, second.ID, queue[0].ID, queue[1].ID)
	}
}

func TestPendingQueue_RequiresManagerRole(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.PendingQueue(context.Background(), employee("emp-1"))
	if !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestApprovedQueue_ListsAllApproved(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	first := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	submit(t, engine, "emp-2", "2025-07-14", "2025-07-18")
	approve(t, engine, first.ID)

	queue, err := engine.ApprovedQueue(context.Background(), hr("hr-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("expected 1 approved request, got %d", len(queue))
	}
	if queue[0].ID != first.ID {
		t.Errorf("expected %s, got %s", first.ID, queue[0].ID)
	}
}

func TestApprovedQueue_RequiresHRRole(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.ApprovedQueue(context.Background(), manager("mgr-1"))
	if !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

// =============================================================================
// REQUEST DETAIL
// =============================================================================

func TestDetail_CarriesHolidaysAndOverlaps(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	mem.SaveHoliday(context.Background(), imported(t, "2025-07-09", "Festival"))

	teammate := submit(t, engine, "emp-2", "2025-07-10", "2025-07-15")
	_ = teammate
	mine := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	detail, err := engine.Detail(context.Background(), manager("mgr-1"), mine.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Request.ID != mine.ID {
		t.Errorf("expected request %s, got %s", mine.ID, detail.Request.ID)
	}
	if len(detail.Holidays) != 1 || detail.Holidays[0].Name != "Festival" {
		t.Errorf("expected the Festival holiday, got %v", detail.Holidays)
	}
	if len(detail.Overlaps) != 1 {
		t.Errorf("expected 1 overlap, got %d", len(detail.Overlaps))
	}
}

func TestDetail_RequiresManagerOrHR(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	mine := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")

	if _, err := engine.Detail(context.Background(), employee("emp-1"), mine.ID); !errors.Is(err, vacation.ErrAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}
	if _, err := engine.Detail(context.Background(), hr("hr-1"), mine.ID); err != nil {
		t.Fatalf("HR read should succeed: %v", err)
	}
}

// =============================================================================
// DASHBOARD / CALENDAR
// =============================================================================

func TestDashboard_AssemblesView(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	mem.SaveHoliday(context.Background(), imported(t, "2025-07-09", "Festival"))

	mine := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	teammate := submit(t, engine, "emp-2", "2025-07-14", "2025-07-18")

	view, err := engine.Dashboard(context.Background(), employee("emp-1"),
		mustDate(t, "2025-07-01"), mustDate(t, "2025-07-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Balance.Unavailable {
		t.Error("expected an available balance")
	}
	if len(view.MyRequests) != 1 || view.MyRequests[0].ID != mine.ID {
		t.Errorf("expected my request %s, got %v", mine.ID, view.MyRequests)
	}
	if len(view.TeamRequests) != 1 || view.TeamRequests[0].ID != teammate.ID {
		t.Errorf("expected team request %s, got %v", teammate.ID, view.TeamRequests)
	}
	if len(view.Holidays) != 1 {
		t.Errorf("expected 1 holiday, got %d", len(view.Holidays))
	}
}

func TestDashboard_CachesOfficialBalance(t *testing.T) {
	// GIVEN: A balance cache with a long TTL
	// WHEN: The dashboard is read twice
	// THEN: The provider is only called once

	engine, _, provider := newTestEngine(t)
	engine.Cache = vacation.NewBalanceCache(time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := engine.Dashboard(context.Background(), employee("emp-1"),
			mustDate(t, "2025-07-01"), mustDate(t, "2025-07-31")); err != nil {
			t.Fatalf("dashboard read %d failed: %v", i, err)
		}
	}

	provider.mu.Lock()
	calls := provider.officialCalls
	provider.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestProcess_InvalidatesCachedBalance(t *testing.T) {
	engine, _, provider := newTestEngine(t)
	engine.Cache = vacation.NewBalanceCache(time.Minute)

	req := submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	approve(t, engine, req.ID)

	// Warm the cache, process, read again: the deduction must be visible.
	if _, err := engine.Dashboard(context.Background(), employee("emp-1"),
		mustDate(t, "2025-07-01"), mustDate(t, "2025-07-31")); err != nil {
		t.Fatalf("dashboard read failed: %v", err)
	}
	if _, err := engine.Process(context.Background(), hr("hr-1"), vacation.ProcessInput{RequestID: req.ID}); err != nil {
		t.Fatalf("processing failed: %v", err)
	}

	view, err := engine.Dashboard(context.Background(), employee("emp-1"),
		mustDate(t, "2025-07-01"), mustDate(t, "2025-07-31"))
	if err != nil {
		t.Fatalf("dashboard read failed: %v", err)
	}
	if !view.Balance.Official.Equal(provider.balance) {
		t.Errorf("expected post-deduction balance %v, got %v", provider.balance, view.Balance.Official)
	}
}

func TestTeamCalendar_ExcludesSelfAndClosedRequests(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	submit(t, engine, "emp-1", "2025-07-07", "2025-07-11")
	open := submit(t, engine, "emp-2", "2025-07-14", "2025-07-18")
	denied := submit(t, engine, "emp-2", "2025-08-04", "2025-08-08")
	if _, err := engine.Decide(context.Background(), manager("mgr-1"), vacation.DecideInput{RequestID: denied.ID}); err != nil {
		t.Fatalf("deny failed: %v", err)
	}

	view, err := engine.TeamCalendar(context.Background(), employee("emp-1"),
		mustDate(t, "2025-07-01"), mustDate(t, "2025-08-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Requests) != 1 || view.Requests[0].ID != open.ID {
		t.Errorf("expected only the open teammate request, got %v", view.Requests)
	}
}
