package engine_test

import (
	"testing"
	"time"

	"github.com/warp/payroll-engine/engine"
)

func TestMonthsBetween_PartialMonthDoesNotCount(t *testing.T) {
	a := engine.NewDate(2024, time.January, 15)

	if got := engine.MonthsBetween(a, engine.NewDate(2024, time.March, 14)); got != 1 {
		t.Errorf("months to day before anniversary = %d, want 1", got)
	}
	if got := engine.MonthsBetween(a, engine.NewDate(2024, time.March, 15)); got != 2 {
		t.Errorf("months to anniversary day = %d, want 2", got)
	}
}

func TestMonthsBetween_EndBeforeStart_Zero(t *testing.T) {
	a := engine.NewDate(2024, time.June, 1)
	b := engine.NewDate(2024, time.January, 1)
	if got := engine.MonthsBetween(a, b); got != 0 {
		t.Errorf("months = %d, want 0", got)
	}
}

func TestDateRange_OpenEnded_ContainsAnyLaterDate(t *testing.T) {
	r := engine.DateRange{Start: engine.NewDate(2026, time.January, 1)}

	if !r.Contains(engine.NewDate(2030, time.December, 31)) {
		t.Error("open-ended range should contain any later date")
	}
	if r.Contains(engine.NewDate(2025, time.December, 31)) {
		t.Error("range should not contain a date before Start")
	}
}

func TestDateRange_Bounded_InclusiveOnBothEnds(t *testing.T) {
	end := engine.NewDate(2026, time.June, 30)
	r := engine.DateRange{Start: engine.NewDate(2026, time.June, 1), End: &end}

	if !r.Contains(engine.NewDate(2026, time.June, 1)) || !r.Contains(end) {
		t.Error("bounds are inclusive")
	}
	if r.Contains(engine.NewDate(2026, time.July, 1)) {
		t.Error("range should end at End")
	}
}

func TestDateRange_Overlaps_SharedDayCounts(t *testing.T) {
	aEnd := engine.NewDate(2026, time.June, 30)
	a := engine.DateRange{Start: engine.NewDate(2026, time.June, 1), End: &aEnd}
	b := engine.DateRange{Start: engine.NewDate(2026, time.June, 30)}
	c := engine.DateRange{Start: engine.NewDate(2026, time.July, 1)}

	if !a.Overlaps(b) {
		t.Error("ranges sharing one day overlap")
	}
	if a.Overlaps(c) {
		t.Error("adjacent ranges do not overlap")
	}
}

func TestMoneyRound2_HalfToEven(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2.345", "2.34"},
		{"2.355", "2.36"},
		{"-2.345", "-2.34"},
		{"2.344999", "2.34"},
	}
	for _, tc := range cases {
		got := engine.MoneyFromString(tc.in).Round2().String()
		if got != tc.want {
			t.Errorf("Round2(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMoneyWithinTolerance_OneCentavo(t *testing.T) {
	a := engine.MoneyFromString("100.00")
	if !a.WithinTolerance(engine.MoneyFromString("100.01")) {
		t.Error("a one-centavo difference is within tolerance")
	}
	if a.WithinTolerance(engine.MoneyFromString("100.02")) {
		t.Error("a two-centavo difference is not within tolerance")
	}
}
