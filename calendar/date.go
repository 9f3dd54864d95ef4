/*
Package calendar provides the date and month arithmetic shared by the
availability, leave and timesheet packages.

PURPOSE:
  Every computation in this system works on calendar dates, never on
  instants. A date is a time.Time normalized to midnight UTC. Months are
  addressed by YearMonth, and availability grids are indexed by year and
  0-based month index.

KEY CONCEPTS IN THIS FILE (date.go):
  - DateOnly: strip time-of-day and zone
  - YearMonth: a calendar month (year + month)
  - MonthsBetween / YearRange / DaysInInterval: closed-range helpers

SEE ALSO:
  - period.go: closed date ranges, financial and leave years
*/
package calendar

import (
	"fmt"
	"time"
)

// Layout is the wire format for dates.
const Layout = "2006-01-02"

// =============================================================================
// DATES
// =============================================================================

// NewDate returns midnight UTC of the given day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the time-of-day and zone of t, keeping its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Parse parses a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string { return t.Format(Layout) }

// Clock returns the current time. Injected so financial-year and
// "next available" logic can be tested at fixed dates.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// Today returns the current date according to clock.
func Today(clock Clock) time.Time {
	if clock == nil {
		clock = SystemClock
	}
	return DateOnly(clock())
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// =============================================================================
// MONTHS
// =============================================================================

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) YearMonth { return YearMonth{Year: t.Year(), Month: t.Month()} }

// Index is the 0-based month index used by availability grids.
func (ym YearMonth) Index() int { return int(ym.Month) - 1 }

// First is the first day of the month.
func (ym YearMonth) First() time.Time { return NewDate(ym.Year, ym.Month, 1) }
// Last is the final day of the month.
func (ym YearMonth) Last() time.Time  { return LastDayOfMonth(ym.Year, ym.Month) }

// Next is the following month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Before reports whether ym is earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// String renders the month as YYYY-MM.
func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month)) }

// ParseYearMonth parses a YYYY-MM month.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return MonthOf(t), nil
}

// LastDayOfMonth returns the final date of the given month.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return NewDate(year, month+1, 1).AddDate(0, 0, -1)
}

// MonthsBetween lists every calendar month touched by [start, end], in order.
func MonthsBetween(start, end time.Time) []YearMonth {
	first, last := MonthOf(start), MonthOf(end)
	if last.Before(first) {
		return nil
	}
	var months []YearMonth
	for ym := first; !last.Before(ym); ym = ym.Next() {
		months = append(months, ym)
	}
	return months
}

// YearRange lists the calendar years from start's year to end's year inclusive.
func YearRange(start, end time.Time) []int {
	var years []int
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// DaysInInterval counts the dates in [start, end], both ends included.
func DaysInInterval(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}
