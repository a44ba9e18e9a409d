/*
calendar.go - Holiday lookup and working-day computation

PURPOSE:
  Computes the chargeable day count of a date range: calendar days in the
  inclusive range minus weekends minus IMPORTED holidays. This is the single
  source of truth for day counts; client-submitted counts are never accepted.

PURITY:
  ComputeDays is a pure function of (start, end, holidays). Callers must
  fetch the holiday set fresh for every computation so that holiday status
  flips take effect immediately - holiday sets are never cached here.

SEE ALSO:
  - engine.go: recomputes day counts on submission and for previews
  - store.go:  HolidayStore, the collaborator behind Calendar
*/
package vacation

import (
	"context"
	"fmt"
)

// ComputeDays counts the chargeable vacation days in [start, end] inclusive,
// excluding Saturdays, Sundays, and any IMPORTED holiday in the set.
// Deprecated holidays in the slice are ignored.
func ComputeDays(start, end Date, holidays []Holiday) (int, error) {
	if start.After(end) {
		return 0, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, start, end)
	}

	offDays := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		if h.Status == HolidayImported {
			offDays[h.Date.String()] = true
		}
	}

	days := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if offDays[d.String()] {
			continue
		}
		days++
	}
	return days, nil
}

// Calendar wraps a HolidayStore with the lookup semantics the engine needs.
type Calendar struct {
	Store HolidayStore
}

// InRange returns the IMPORTED holidays in [start, end]. A store failure
// propagates as an integration failure.
func (c *Calendar) InRange(ctx context.Context, start, end Date) ([]Holiday, error) {
	holidays, err := c.Store.ListImported(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("holiday lookup failed: %w", err)
	}
	return holidays, nil
}

// InRangeOrEmpty is the non-fatal variant: a store failure is treated as
// "no holidays found". Used only for annotation paths where missing
// holidays degrade display, not correctness.
func (c *Calendar) InRangeOrEmpty(ctx context.Context, start, end Date) []Holiday {
	holidays, err := c.Store.ListImported(ctx, start, end)
	if err != nil {
		return nil
	}
	return holidays
}
