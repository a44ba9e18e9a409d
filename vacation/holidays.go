/*
holidays.go - Holiday import and administration

PURPOSE:
  Imports a year of public holidays from a configured external feed and
  manages their status. Imported holidays participate in working-day
  computation immediately; deprecating one removes it from calculations
  while keeping the row for audit. Re-importing a deprecated holiday
  restores it to IMPORTED.
*/
package vacation

import (
	"context"
	"fmt"
)

// Year bounds accepted by the importer.
const (
	minImportYear = 1950
	maxImportYear = 2100
)

// HolidayPayload is one entry from the external holiday feed.
type HolidayPayload struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// HolidayFeed fetches public holidays from the external integration.
type HolidayFeed interface {
	FetchYear(ctx context.Context, year int) ([]HolidayPayload, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Year     int
	Imported int
	Skipped  int
	Outcome  string // "success", "partial", "failure"
	Message  string
}

// ImportHolidays fetches and upserts the holidays of a year. Malformed
// entries are skipped, not fatal; the outcome classifies the run.
func (e *Engine) ImportHolidays(ctx context.Context, actor Actor, year int) (ImportResult, error) {
	if !actor.HasRole(RoleAdmin) {
		return ImportResult{}, fmt.Errorf("%w: holiday import requires the admin role", ErrAuthorizationDenied)
	}
	if year < minImportYear || year > maxImportYear {
		return e.importOutcome(ctx, actor, year, 0, 0, "Year out of allowed range"), nil
	}
	if e.Feed == nil {
		return e.importOutcome(ctx, actor, year, 0, 0, "Holiday integration not configured"), nil
	}

	payloads, err := e.Feed.FetchYear(ctx, year)
	if err != nil {
		return e.importOutcome(ctx, actor, year, 0, 0, "Unable to fetch holidays: "+err.Error()), nil
	}

	imported, skipped := 0, 0
	for _, payload := range payloads {
		if payload.Date == "" || payload.Name == "" {
			skipped++
			continue
		}
		date, err := ParseDate(payload.Date)
		if err != nil {
			skipped++
			continue
		}
		if err := e.upsertHoliday(ctx, date, payload.Name); err != nil {
			skipped++
			continue
		}
		imported++
	}
	return e.importOutcome(ctx, actor, year, imported, skipped, ""), nil
}

func (e *Engine) upsertHoliday(ctx context.Context, date Date, name string) error {
	existing, err := e.Holidays.FindByDateAndName(ctx, date, name)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Status = HolidayImported
		existing.DeprecationReason = ""
		return e.Holidays.SaveHoliday(ctx, *existing)
	}
	return e.Holidays.SaveHoliday(ctx, Holiday{
		ID:        newHolidayID(e.Now()),
		Date:      date,
		Name:      name,
		Status:    HolidayImported,
		CreatedAt: e.Now(),
	})
}

func (e *Engine) importOutcome(ctx context.Context, actor Actor, year, imported, skipped int, failure string) ImportResult {
	result := ImportResult{Year: year, Imported: imported, Skipped: skipped}
	switch {
	case failure != "":
		result.Outcome = "failure"
		result.Message = failure
	case imported == 0:
		result.Outcome = "failure"
		result.Message = "No holidays imported"
	case skipped > 0:
		result.Outcome = "partial"
		result.Message = fmt.Sprintf("Imported %d holidays, skipped %d", imported, skipped)
	default:
		result.Outcome = "success"
		result.Message = fmt.Sprintf("Imported %d holidays", imported)
	}
	e.recordAudit(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditHolidayImport,
		EntityType: "holiday",
		EntityID:   fmt.Sprintf("year-%d", year),
		Details:    fmt.Sprintf("imported=%d skipped=%d outcome=%s", imported, skipped, result.Outcome),
	})
	return result
}

// DeprecateHoliday retires a holiday from calculations, keeping the row.
func (e *Engine) DeprecateHoliday(ctx context.Context, actor Actor, id HolidayID, reason string) (*Holiday, error) {
	if !actor.HasRole(RoleAdmin) {
		return nil, fmt.Errorf("%w: holiday administration requires the admin role", ErrAuthorizationDenied)
	}
	holiday, err := e.Holidays.GetHoliday(ctx, id)
	if err != nil {
		return nil, err
	}
	if holiday == nil {
		return nil, fmt.Errorf("%w: holiday %s", ErrNotFound, id)
	}
	holiday.Status = HolidayDeprecated
	holiday.DeprecationReason = reason
	if err := e.Holidays.SaveHoliday(ctx, *holiday); err != nil {
		return nil, fmt.Errorf("failed to deprecate holiday: %w", err)
	}
	e.recordAudit(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditHolidayDeprecated,
		EntityType: "holiday",
		EntityID:   string(id),
		Details:    reason,
	})
	return holiday, nil
}

// ImportedYears lists the years that have imported holidays.
func (e *Engine) ImportedYears(ctx context.Context) ([]int, error) {
	return e.Holidays.ListImportedYears(ctx)
}

// HolidaysForYear lists the imported holidays of a year.
func (e *Engine) HolidaysForYear(ctx context.Context, year int) ([]Holiday, error) {
	return e.Holidays.ListImportedByYear(ctx, year)
}
