package vacation_test

import (
	"testing"
	"time"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := vacation.ParseDate("2025-06-18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-06-18" {
		t.Errorf("expected 2025-06-18, got %s", d)
	}
}

func TestParseDate_RejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "18/06/2025", "2025-13-01", "tomorrow"} {
		if _, err := vacation.ParseDate(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestDate_Comparisons(t *testing.T) {
	a := vacation.NewDate(2025, time.June, 18)
	b := vacation.NewDate(2025, time.June, 19)

	if !a.Before(b) || b.Before(a) {
		t.Error("Before is wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After is wrong")
	}
	if !a.Equal(vacation.NewDate(2025, time.June, 18)) {
		t.Error("Equal is wrong")
	}
	if !a.BeforeOrEqual(a) || !a.AfterOrEqual(a) {
		t.Error("OrEqual variants should include equality")
	}
}

func TestDate_AddDaysAndDaysUntil(t *testing.T) {
	a := vacation.NewDate(2025, time.June, 18)
	b := a.AddDays(14)

	if b.String() != "2025-07-02" {
		t.Errorf("expected 2025-07-02, got %s", b)
	}
	if got := a.DaysUntil(b); got != 14 {
		t.Errorf("expected 14 days, got %d", got)
	}
	if got := b.DaysUntil(a); got != -14 {
		t.Errorf("expected -14 days, got %d", got)
	}
}

func TestDate_IsWeekend(t *testing.T) {
	sat := vacation.NewDate(2025, time.June, 21)
	sun := vacation.NewDate(2025, time.June, 22)
	mon := vacation.NewDate(2025, time.June, 23)

	if !sat.IsWeekend() || !sun.IsWeekend() {
		t.Error("Saturday and Sunday should be weekend")
	}
	if mon.IsWeekend() {
		t.Error("Monday should not be weekend")
	}
}

func TestDateOf_DropsTimeComponent(t *testing.T) {
	at := time.Date(2025, time.June, 18, 23, 59, 59, 0, time.UTC)
	if got := vacation.DateOf(at).String(); got != "2025-06-18" {
		t.Errorf("expected 2025-06-18, got %s", got)
	}
}
