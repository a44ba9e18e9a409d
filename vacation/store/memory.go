// Package store provides in-memory implementations of the vacation
// storage interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

// =============================================================================
// MEMORY - In-memory RequestStore / HolidayStore / TeamDirectory / AuditLog
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	requests  map[vacation.RequestID]*vacation.Request
	holidays  map[vacation.HolidayID]vacation.Holiday
	employees map[vacation.EmployeeID]string
	members   map[string][]vacation.EmployeeID
	managers  map[string]vacation.EmployeeID
	audit     []vacation.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		requests:  make(map[vacation.RequestID]*vacation.Request),
		holidays:  make(map[vacation.HolidayID]vacation.Holiday),
		employees: make(map[vacation.EmployeeID]string),
		members:   make(map[string][]vacation.EmployeeID),
		managers:  make(map[string]vacation.EmployeeID),
	}
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (m *Memory) SaveRequest(_ context.Context, req *vacation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := req.Clone()
	stored.Version = 1
	m.requests[req.ID] = stored
	req.Version = 1
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id vacation.RequestID) (*vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (m *Memory) UpdateRequest(_ context.Context, req *vacation.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.requests[req.ID]
	if !ok {
		return vacation.ErrNotFound
	}
	if current.Version != req.Version {
		return vacation.ErrConcurrentModification
	}
	stored := req.Clone()
	stored.Version = current.Version + 1
	m.requests[req.ID] = stored
	req.Version = stored.Version
	return nil
}

func (m *Memory) ListByEmployee(_ context.Context, employeeID vacation.EmployeeID, statuses ...vacation.Status) ([]*vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vacation.Request
	for _, req := range m.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		if len(statuses) > 0 && !statusIn(req.Status, statuses) {
			continue
		}
		out = append(out, req.Clone())
	}
	sortBySubmission(out)
	return out, nil
}

func (m *Memory) ListByStatus(_ context.Context, status vacation.Status) ([]*vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*vacation.Request
	for _, req := range m.requests {
		if req.Status == status {
			out = append(out, req.Clone())
		}
	}
	sortBySubmission(out)
	return out, nil
}

func (m *Memory) ListForEmployeesInRange(_ context.Context, employeeIDs []vacation.EmployeeID, start, end vacation.Date) ([]*vacation.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scope := make(map[vacation.EmployeeID]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		scope[id] = true
	}
	var out []*vacation.Request
	for _, req := range m.requests {
		if !scope[req.EmployeeID] {
			continue
		}
		if vacation.Intersects(start, end, req.StartDate, req.EndDate) {
			out = append(out, req.Clone())
		}
	}
	sortBySubmission(out)
	return out, nil
}

func statusIn(s vacation.Status, statuses []vacation.Status) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func sortBySubmission(reqs []*vacation.Request) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].SubmittedAt.Equal(reqs[j].SubmittedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].SubmittedAt.Before(reqs[j].SubmittedAt)
	})
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (m *Memory) ListImported(_ context.Context, start, end vacation.Date) ([]vacation.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []vacation.Holiday
	for _, h := range m.holidays {
		if h.Status != vacation.HolidayImported {
			continue
		}
		if h.Date.AfterOrEqual(start) && h.Date.BeforeOrEqual(end) {
			out = append(out, h)
		}
	}
	sortByDate(out)
	return out, nil
}

func (m *Memory) FindByDateAndName(_ context.Context, date vacation.Date, name string) (*vacation.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holidays {
		if h.Date.Equal(date) && h.Name == name {
			found := h
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h vacation.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) GetHoliday(_ context.Context, id vacation.HolidayID) (*vacation.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.holidays[id]
	if !ok {
		return nil, nil
	}
	found := h
	return &found, nil
}

func (m *Memory) ListImportedYears(_ context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int]bool)
	for _, h := range m.holidays {
		if h.Status == vacation.HolidayImported {
			seen[h.Date.Year()] = true
		}
	}
	var years []int
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (m *Memory) ListImportedByYear(_ context.Context, year int) ([]vacation.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []vacation.Holiday
	for _, h := range m.holidays {
		if h.Status == vacation.HolidayImported && h.Date.Year() == year {
			out = append(out, h)
		}
	}
	sortByDate(out)
	return out, nil
}

func sortByDate(holidays []vacation.Holiday) {
	sort.Slice(holidays, func(i, j int) bool {
		return holidays[i].Date.Before(holidays[j].Date)
	})
}

// =============================================================================
// TEAM DIRECTORY
// =============================================================================

// AddEmployee registers an employee with a display name.
func (m *Memory) AddEmployee(id vacation.EmployeeID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[id] = name
}

// AddTeam creates a team with a manager and members. The manager is
// also visible as a member of the team.
func (m *Memory) AddTeam(teamID string, manager vacation.EmployeeID, members ...vacation.EmployeeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.managers[teamID] = manager
	m.members[teamID] = append([]vacation.EmployeeID{manager}, members...)
}

func (m *Memory) EmployeeName(_ context.Context, id vacation.EmployeeID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.employees[id], nil
}

func (m *Memory) TeamMembersVisibleTo(_ context.Context, id vacation.EmployeeID) ([]vacation.EmployeeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[vacation.EmployeeID]bool)
	var out []vacation.EmployeeID
	for teamID, members := range m.members {
		if !contains(members, id) && m.managers[teamID] != id {
			continue
		}
		for _, member := range members {
			if !seen[member] {
				seen[member] = true
				out = append(out, member)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) ManagesEmployee(_ context.Context, manager, employee vacation.EmployeeID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for teamID, members := range m.members {
		if m.managers[teamID] == manager && contains(members, employee) {
			return true, nil
		}
	}
	return false, nil
}

func contains(members []vacation.EmployeeID, id vacation.EmployeeID) bool {
	for _, member := range members {
		if member == id {
			return true
		}
	}
	return false
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) Record(_ context.Context, entry vacation.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

// AuditEntries returns a copy of the recorded audit trail.
func (m *Memory) AuditEntries() []vacation.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]vacation.AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}
