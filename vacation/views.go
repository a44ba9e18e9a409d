/*
views.go - Read-side projections

PURPOSE:
  Queues, request detail, balance reads, and the dashboard/calendar
  bundles. All of these are live views over the request store - none has
  independent state. The HR processing queue, in particular, is simply
  "every request in APPROVED status", oldest submission first.
*/
package vacation

import (
	"context"
	"fmt"
)

// =============================================================================
// QUEUES
// =============================================================================

// PendingQueue returns the PENDING requests of the employees visible to the
// acting manager, oldest submission first.
func (e *Engine) PendingQueue(ctx context.Context, actor Actor) ([]*Request, error) {
	if !actor.HasRole(RoleManager) {
		return nil, fmt.Errorf("%w: pending queue requires the manager role", ErrAuthorizationDenied)
	}
	visible, err := e.Directory.TeamMembersVisibleTo(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	scope := make(map[EmployeeID]bool, len(visible))
	for _, id := range visible {
		scope[id] = true
	}

	pending, err := e.Requests.ListByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	var out []*Request
	for _, req := range pending {
		if scope[req.EmployeeID] {
			out = append(out, req)
		}
	}
	return out, nil
}

// ApprovedQueue returns the HR processing queue: all APPROVED requests,
// oldest submission first.
func (e *Engine) ApprovedQueue(ctx context.Context, actor Actor) ([]*Request, error) {
	if !actor.HasRole(RoleHR) {
		return nil, fmt.Errorf("%w: processing queue requires the HR role", ErrAuthorizationDenied)
	}
	return e.Requests.ListByStatus(ctx, StatusApproved)
}

// =============================================================================
// REQUEST DETAIL
// =============================================================================

// RequestDetail is everything a manager sees when deciding: the request,
// the holidays inside its range, and the overlapping teammate requests.
type RequestDetail struct {
	Request  *Request
	Holidays []Holiday
	Overlaps []OverlapRecord
}

// Detail loads the decision-support view for a request. Holiday lookup is
// non-fatal here: a missing annotation degrades the display, not the
// decision itself.
func (e *Engine) Detail(ctx context.Context, actor Actor, id RequestID) (*RequestDetail, error) {
	if !actor.HasRole(RoleManager) && !actor.HasRole(RoleHR) {
		return nil, fmt.Errorf("%w: request detail requires the manager or HR role", ErrAuthorizationDenied)
	}
	req, err := e.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}

	overlaps, err := e.Overlaps.OverlapsFor(ctx, req)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{
		Request:  req,
		Holidays: e.Calendar.InRangeOrEmpty(ctx, req.StartDate, req.EndDate),
		Overlaps: overlaps,
	}, nil
}

// =============================================================================
// BALANCE
// =============================================================================

// BalanceFor returns the reconciled balance snapshot for an employee.
// Employees read their own balance; managers and HR may read anyone's.
func (e *Engine) BalanceFor(ctx context.Context, actor Actor, employeeID EmployeeID) (BalanceSnapshot, error) {
	if actor.ID != employeeID && !actor.HasRole(RoleManager) && !actor.HasRole(RoleHR) {
		return BalanceSnapshot{}, fmt.Errorf("%w: cannot read another employee's balance", ErrAuthorizationDenied)
	}
	return e.Reconciler.BalanceFor(ctx, employeeID)
}

// cachedBalanceFor is the dashboard read path: it may serve the official
// balance from the short-lived cache. Lifecycle transitions never use it.
func (e *Engine) cachedBalanceFor(ctx context.Context, employeeID EmployeeID) (BalanceSnapshot, error) {
	if e.Cache == nil {
		return e.Reconciler.BalanceFor(ctx, employeeID)
	}
	result, ok := e.Cache.Get(employeeID)
	if !ok {
		result = e.Provider.OfficialBalance(ctx, employeeID)
		e.Cache.Put(employeeID, result)
	}
	return e.Reconciler.SnapshotFrom(ctx, employeeID, result)
}

// =============================================================================
// DASHBOARD / CALENDAR
// =============================================================================

// DashboardView is the employee's home view over a date range.
type DashboardView struct {
	Balance      BalanceSnapshot
	MyRequests   []*Request
	TeamRequests []*Request
	Holidays     []Holiday
}

// Dashboard assembles the employee dashboard: balance snapshot, own
// requests in range (any status), teammates' PENDING/APPROVED requests in
// range, and the holidays in range.
func (e *Engine) Dashboard(ctx context.Context, actor Actor, start, end Date) (*DashboardView, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, start, end)
	}

	balance, err := e.cachedBalanceFor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	mine, err := e.Requests.ListForEmployeesInRange(ctx, []EmployeeID{actor.ID}, start, end)
	if err != nil {
		return nil, err
	}

	team, err := e.teamRequestsInRange(ctx, actor.ID, start, end)
	if err != nil {
		return nil, err
	}

	return &DashboardView{
		Balance:      balance,
		MyRequests:   mine,
		TeamRequests: team,
		Holidays:     e.Calendar.InRangeOrEmpty(ctx, start, end),
	}, nil
}

// CalendarView is the shared team calendar over a date range.
type CalendarView struct {
	Requests []*Request
	Holidays []Holiday
}

// TeamCalendar returns the PENDING/APPROVED vacations of the actor's
// visible teammates plus the holidays in range.
func (e *Engine) TeamCalendar(ctx context.Context, actor Actor, start, end Date) (*CalendarView, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, start, end)
	}
	requests, err := e.teamRequestsInRange(ctx, actor.ID, start, end)
	if err != nil {
		return nil, err
	}
	return &CalendarView{
		Requests: requests,
		Holidays: e.Calendar.InRangeOrEmpty(ctx, start, end),
	}, nil
}

func (e *Engine) teamRequestsInRange(ctx context.Context, id EmployeeID, start, end Date) ([]*Request, error) {
	roster, err := e.Directory.TeamMembersVisibleTo(ctx, id)
	if err != nil {
		return nil, err
	}
	var teammates []EmployeeID
	for _, member := range roster {
		if member != id {
			teammates = append(teammates, member)
		}
	}
	if len(teammates) == 0 {
		return nil, nil
	}
	all, err := e.Requests.ListForEmployeesInRange(ctx, teammates, start, end)
	if err != nil {
		return nil, err
	}
	var out []*Request
	for _, req := range all {
		if req.Status == StatusPending || req.Status == StatusApproved {
			out = append(out, req)
		}
	}
	return out, nil
}
