/*
Package timesheet classifies every working day of a financial year for
each RSE and rolls the result into team utilisation reports.

PURPOSE:
  For each staff member and each date the aggregator works out how many
  hours were contracted (capacity), committed to projects (assigned),
  taken as leave or sickness, and actually recorded in the time tracker,
  split into billable, non-billable and volunteered time.

INPUTS:
  - Staff, assignments and capacity overrides from the CRUD store
  - Availability grids from the availability engine
  - Leave, bank holidays and closure days from the leave calculator
  - Time entries (detailed) and summary rows from the time tracker

FAILURE POLICY:
  Staff, assignment, capacity and time-tracking failures fail the request.
  Leave and holiday failures degrade to zero inside the leave calculator.

SEE ALSO:
  - aggregator.go: daily classification and timesheet summaries
  - utilisation.go: month x staff utilisation report
*/
package timesheet

import (
	"context"
	"errors"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/shopspring/decimal"
)

// StandardDayHours is one working day: a 37-hour week over five days.
var StandardDayHours = decimal.NewFromFloat(7.4)

// ErrStaffNotFound is returned when a summary is requested for an unknown RSE.
var ErrStaffNotFound = errors.New("staff member not found")

// =============================================================================
// SOURCES
// =============================================================================

// AssignmentFilter narrows ListAssignments. Zero values match everything.
type AssignmentFilter struct {
	StaffID   string
	ProjectID string
}

// CapacityFilter narrows ListCapacities. Zero values match everything.
type CapacityFilter struct {
	StaffID string
}

// StaffSource lists every RSE on record.
type StaffSource interface {
	ListStaff(ctx context.Context) ([]availability.Staff, error)
}

// AssignmentSource lists project assignments.
type AssignmentSource interface {
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]availability.Assignment, error)
}

// CapacitySource lists capacity overrides ordered by start date.
type CapacitySource interface {
	ListCapacities(ctx context.Context, filter CapacityFilter) ([]availability.CapacityOverride, error)
}

// TimeEntry is one detailed time-tracker record.
type TimeEntry struct {
	StaffID  string
	Date     time.Time
	Hours    decimal.Decimal
	Billable bool
	Project  string
}

// SummaryRow is recorded time pre-aggregated per staff member per day.
type SummaryRow struct {
	StaffID  string
	Date     time.Time
	Recorded decimal.Decimal
	Billable decimal.Decimal
}

// TimeEntrySource reads the time tracker.
type TimeEntrySource interface {
	FetchTimeEntries(ctx context.Context, staffID string, period calendar.Period) ([]TimeEntry, error)
	FetchTimeSummary(ctx context.Context, period calendar.Period) ([]SummaryRow, error)
}

// =============================================================================
// CLASSIFICATIONS
// =============================================================================

// Non-working reasons besides bank holiday and closure names.
const (
	ReasonWeekend     = "Weekend"
	ReasonOffContract = "Not under contract"
)

// DailyClassification splits one staff member's day into hour buckets.
// NonWorking is empty on a working day and names the reason otherwise.
type DailyClassification struct {
	Date        time.Time
	StaffID     string
	NonWorking  string
	Capacity    decimal.Decimal
	Assigned    decimal.Decimal
	Leave       decimal.Decimal
	Sickness    decimal.Decimal
	Recorded    decimal.Decimal
	Billable    decimal.Decimal
	NonBillable decimal.Decimal
	Volunteered decimal.Decimal
}

// Totals sums classifications.
type Totals struct {
	Capacity    decimal.Decimal
	Assigned    decimal.Decimal
	Leave       decimal.Decimal
	Sickness    decimal.Decimal
	Recorded    decimal.Decimal
	Billable    decimal.Decimal
	NonBillable decimal.Decimal
	Volunteered decimal.Decimal
}

// AddDay adds one day's buckets.
func (t *Totals) AddDay(d DailyClassification) {
	t.Capacity = t.Capacity.Add(d.Capacity)
	t.Assigned = t.Assigned.Add(d.Assigned)
	t.Leave = t.Leave.Add(d.Leave)
	t.Sickness = t.Sickness.Add(d.Sickness)
	t.Recorded = t.Recorded.Add(d.Recorded)
	t.Billable = t.Billable.Add(d.Billable)
	t.NonBillable = t.NonBillable.Add(d.NonBillable)
	t.Volunteered = t.Volunteered.Add(d.Volunteered)
}

// Available is capacity less leave and sickness, floored at zero.
func (t Totals) Available() decimal.Decimal {
	return decimal.Max(decimal.Zero, t.Capacity.Sub(t.Leave).Sub(t.Sickness))
}

// Utilisation is billable hours as a percentage of available hours, rounded
// to one decimal place. Zero when nothing was available.
func (t Totals) Utilisation() decimal.Decimal {
	avail := t.Available()
	if avail.IsZero() {
		return decimal.Zero
	}
	return t.Billable.Div(avail).Mul(decimal.NewFromInt(100)).Round(1)
}

// StaffTotals is one staff member's share of a report.
type StaffTotals struct {
	StaffID string
	Name    string
	Total   Totals
}

// Summary is the timesheet for one or all staff over a financial year.
type Summary struct {
	FinancialYear int
	Period        calendar.Period
	Days          []DailyClassification
	Staff         []StaffTotals
	Total         Totals
}

// MonthTotals is one month of a utilisation report.
type MonthTotals struct {
	Month calendar.YearMonth
	Total Totals
}

// UtilisationReport aggregates a financial year by month and by staff
// member. Months, RSEs and Total are built from the same rows, so every
// bucket sums to the same grand total both ways.
type UtilisationReport struct {
	FinancialYear int
	Period        calendar.Period
	Total         Totals
	Months        []MonthTotals
	RSEs          []StaffTotals
}
