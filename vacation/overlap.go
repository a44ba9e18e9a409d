/*
overlap.go - Overlap detection across a team roster

PURPOSE:
  Finds other requests (any status) whose date range intersects a candidate
  range, scoped to the employees visible through the team directory. The
  result informs a manager's decision; it never blocks approval.
*/
package vacation

import (
	"context"
)

// Intersects reports whether [aStart, aEnd] and [bStart, bEnd] share at
// least one day: a.start <= b.end AND a.end >= b.start, inclusive on both
// ends.
func Intersects(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.BeforeOrEqual(bEnd) && aEnd.AfterOrEqual(bStart)
}

// OverlapDetector projects overlapping requests for decision support.
type OverlapDetector struct {
	Requests  RequestStore
	Directory TeamDirectory
}

// OverlapsFor returns the requests of the candidate's teammates (any
// status, the candidate itself excluded) intersecting the candidate range.
func (d *OverlapDetector) OverlapsFor(ctx context.Context, candidate *Request) ([]OverlapRecord, error) {
	roster, err := d.Directory.TeamMembersVisibleTo(ctx, candidate.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, nil
	}

	others, err := d.Requests.ListForEmployeesInRange(ctx, roster, candidate.StartDate, candidate.EndDate)
	if err != nil {
		return nil, err
	}

	var records []OverlapRecord
	for _, other := range others {
		if other.ID == candidate.ID {
			continue
		}
		if !Intersects(candidate.StartDate, candidate.EndDate, other.StartDate, other.EndDate) {
			continue
		}
		records = append(records, OverlapRecord{
			RequestID:    other.ID,
			EmployeeID:   other.EmployeeID,
			EmployeeName: other.EmployeeName,
			StartDate:    other.StartDate,
			EndDate:      other.EndDate,
			Status:       other.Status,
		})
	}
	return records, nil
}
