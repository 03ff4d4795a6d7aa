package engine

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity date (calculation reference dates, date ranges)
// =============================================================================

type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses "2006-01-02". Returns zero Date on malformed input.
func ParseDate(s string) Date {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.Time.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// MonthsBetween returns the number of whole months from a to b.
// Partial months do not count: 2024-01-15 to 2024-03-14 is 1 month.
// Returns 0 when b is before a.
func MonthsBetween(a, b Date) int {
	if b.Before(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// =============================================================================
// DATE RANGE - Half-open validity window [Start, End]; nil End = open-ended
// =============================================================================

type DateRange struct {
	Start Date
	End   *Date
}

// Contains reports whether the range covers d (inclusive on both bounds).
func (r DateRange) Contains(d Date) bool {
	if d.Before(r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// Overlaps reports whether two ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	if o.End != nil && o.End.Before(r.Start) {
		return false
	}
	if r.End != nil && r.End.Before(o.Start) {
		return false
	}
	return true
}
