package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - closed date range
// =============================================================================

// Period is the closed range [Start, End] of calendar dates.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod normalizes both ends to dates.
func NewPeriod(start, end time.Time) Period {
	return Period{Start: DateOnly(start), End: DateOnly(end)}
}

// Contains reports whether the date of t lies within the period.
func (p Period) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(DateOnly(p.Start)) && !d.After(DateOnly(p.End))
}

// Days returns every date in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := DateOnly(p.Start); !d.After(DateOnly(p.End)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Valid reports whether End is not before Start.
func (p Period) Valid() bool { return !p.End.Before(p.Start) }

// String renders the period as [YYYY-MM-DD, YYYY-MM-DD].
func (p Period) String() string {
	return "[" + Format(p.Start) + ", " + Format(p.End) + "]"
}

// =============================================================================
// FINANCIAL YEAR - 1 August to 31 July, labelled by its starting year
// =============================================================================

// FinancialYearStart is the first month of the financial year.
const FinancialYearStart = time.August

// FinancialYearAt returns the financial year in force at now. Before
// August (0-based month index < 7) that is the previous calendar year.
func FinancialYearAt(now time.Time) int {
	if int(now.Month())-1 < int(FinancialYearStart)-1 {
		return now.Year() - 1
	}
	return now.Year()
}

// FinancialYearPeriod returns Y-08-01 .. (Y+1)-07-31.
func FinancialYearPeriod(year int) Period {
	start := NewDate(year, FinancialYearStart, 1)
	return Period{Start: start, End: start.AddDate(1, 0, -1)}
}

// FinancialYearMonths lists the twelve months of the financial year, August first.
func FinancialYearMonths(year int) []YearMonth {
	p := FinancialYearPeriod(year)
	return MonthsBetween(p.Start, p.End)
}

// FinancialYearLabel renders e.g. "2025/26".
func FinancialYearLabel(year int) string {
	return fmt.Sprintf("%d/%02d", year, (year+1)%100)
}

// =============================================================================
// LEAVE YEAR - calendar year, labelled by the year
// =============================================================================

// LeaveYearAt returns the leave year containing t.
func LeaveYearAt(t time.Time) int { return t.Year() }

// LeaveYearPeriod returns 1 January .. 31 December of year.
func LeaveYearPeriod(year int) Period {
	return Period{Start: NewDate(year, time.January, 1), End: NewDate(year, time.December, 31)}
}

// LeaveYearLabel is the label the leave source files its records under.
func LeaveYearLabel(year int) string { return fmt.Sprintf("%d", year) }

// LeaveYearsFor lists the labels of every leave year overlapping [start, end].
func LeaveYearsFor(start, end time.Time) []string {
	var labels []string
	for y := LeaveYearAt(start); y <= LeaveYearAt(end); y++ {
		labels = append(labels, LeaveYearLabel(y))
	}
	return labels
}
