package timesheet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregator builds timesheet summaries and utilisation reports.
type Aggregator struct {
	Staff       StaffSource
	Assignments AssignmentSource
	Capacities  CapacitySource
	Time        TimeEntrySource
	Leave       *leave.Calculator
	Engine      *availability.Engine
	DayHours    decimal.Decimal
	Logger      *slog.Logger
}

// Config bundles the aggregator's collaborators.
type Config struct {
	Staff       StaffSource
	Assignments AssignmentSource
	Capacities  CapacitySource
	Time        TimeEntrySource
	Leave       *leave.Calculator
	Engine      *availability.Engine
	Logger      *slog.Logger
}

// NewAggregator wires an aggregator. Nil Engine and Logger take defaults.
func NewAggregator(cfg Config) *Aggregator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = availability.NewEngine(nil)
	}
	return &Aggregator{
		Staff:       cfg.Staff,
		Assignments: cfg.Assignments,
		Capacities:  cfg.Capacities,
		Time:        cfg.Time,
		Leave:       cfg.Leave,
		Engine:      engine,
		DayHours:    StandardDayHours,
		Logger:      logger,
	}
}

// =============================================================================
// SNAPSHOT - everything fetched for one request
// =============================================================================

type snapshot struct {
	period      calendar.Period
	staff       []availability.Staff
	names       map[string]string
	assignments map[string][]availability.Assignment
	capacities  map[string][]availability.CapacityOverride
	nonWorking  map[time.Time]string
	leave       map[string]map[time.Time][]leave.Entry
}

// load fetches staff, assignments, capacities, leave and non-working days.
// An empty staffID loads every staff member whose contract overlaps period.
func (a *Aggregator) load(ctx context.Context, staffID string, period calendar.Period) (*snapshot, error) {
	all, err := a.Staff.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}

	var (
		staff []availability.Staff
		found bool
		names = make(map[string]string, len(all))
	)
	for _, s := range all {
		names[s.ID] = s.Name
		if staffID != "" && s.ID != staffID {
			continue
		}
		found = true
		if contractOverlaps(s, period) {
			staff = append(staff, s)
		}
	}
	if staffID != "" && !found {
		return nil, fmt.Errorf("%w: %s", ErrStaffNotFound, staffID)
	}

	assignments, err := a.Assignments.ListAssignments(ctx, AssignmentFilter{StaffID: staffID})
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	capacities, err := a.Capacities.ListCapacities(ctx, CapacityFilter{StaffID: staffID})
	if err != nil {
		return nil, fmt.Errorf("list capacities: %w", err)
	}

	snap := &snapshot{
		period:      period,
		staff:       staff,
		names:       names,
		assignments: make(map[string][]availability.Assignment),
		capacities:  make(map[string][]availability.CapacityOverride),
		nonWorking:  a.Leave.NonWorkingDays(ctx, period.Start, period.End),
		leave:       make(map[string]map[time.Time][]leave.Entry),
	}
	for _, as := range assignments {
		snap.assignments[as.StaffID] = append(snap.assignments[as.StaffID], as)
	}
	for _, c := range capacities {
		snap.capacities[c.StaffID] = append(snap.capacities[c.StaffID], c)
	}
	for _, e := range a.Leave.LeaveEntries(ctx, staffID, period.Start, period.End) {
		byDay, ok := snap.leave[e.StaffID]
		if !ok {
			byDay = make(map[time.Time][]leave.Entry)
			snap.leave[e.StaffID] = byDay
		}
		day := calendar.DateOnly(e.Date)
		byDay[day] = append(byDay[day], e)
	}
	return snap, nil
}

func contractOverlaps(s availability.Staff, p calendar.Period) bool {
	if calendar.DateOnly(s.ContractStart).After(p.End) {
		return false
	}
	return s.ContractEnd == nil || !calendar.DateOnly(*s.ContractEnd).Before(p.Start)
}

func underContract(s availability.Staff, day time.Time) bool {
	if day.Before(calendar.DateOnly(s.ContractStart)) {
		return false
	}
	return s.ContractEnd == nil || !day.After(calendar.DateOnly(*s.ContractEnd))
}

// =============================================================================
// DAILY CLASSIFICATION
// =============================================================================

// classifyStaff produces one classification per date of the period for a
// staff member. entries may be nil when only capacity is wanted.
func (a *Aggregator) classifyStaff(snap *snapshot, s availability.Staff, entries []TimeEntry) []DailyClassification {
	grids := a.Engine.ComputeThrough(s, snap.assignments[s.ID], snap.capacities[s.ID], snap.period.End)

	byDay := make(map[time.Time][]TimeEntry)
	for _, e := range entries {
		if e.StaffID != "" && e.StaffID != s.ID {
			continue
		}
		day := calendar.DateOnly(e.Date)
		byDay[day] = append(byDay[day], e)
	}

	days := snap.period.Days()
	out := make([]DailyClassification, 0, len(days))
	for _, day := range days {
		out = append(out, a.classifyDay(day, s, grids, snap, byDay[day]))
	}
	return out
}

func (a *Aggregator) classifyDay(day time.Time, s availability.Staff, grids availability.Result, snap *snapshot, entries []TimeEntry) DailyClassification {
	c := DailyClassification{Date: day, StaffID: s.ID}

	for _, e := range entries {
		c.Recorded = c.Recorded.Add(e.Hours)
		if e.Billable {
			c.Billable = c.Billable.Add(e.Hours)
		} else {
			c.NonBillable = c.NonBillable.Add(e.Hours)
		}
	}

	switch name, closed := snap.nonWorking[day]; {
	case !underContract(s, day):
		c.NonWorking = ReasonOffContract
	case calendar.IsWeekend(day):
		c.NonWorking = ReasonWeekend
	case closed:
		c.NonWorking = name
	}

	if c.NonWorking == "" {
		ym := calendar.MonthOf(day)
		capCell := grids.Capacity.Cell(ym.Year, ym.Index())
		availCell := grids.Available.Cell(ym.Year, ym.Index())
		if capCell.Valid {
			c.Capacity = a.hours(capCell.Decimal)
			c.Assigned = a.hours(capCell.Decimal.Sub(availCell.Decimal))
		}
		for _, e := range snap.leave[s.ID][day] {
			h := a.DayHours.Mul(decimal.NewFromFloat(e.Duration.Days()))
			if e.Kind == leave.KindSickness {
				c.Sickness = c.Sickness.Add(h)
			} else {
				c.Leave = c.Leave.Add(h)
			}
		}
	}

	c.settleVolunteered()
	return c
}

// settleVolunteered recomputes volunteered time: hours recorded beyond the
// day's capacity left after leave and sickness.
func (c *DailyClassification) settleVolunteered() {
	working := decimal.Max(decimal.Zero, c.Capacity.Sub(c.Leave).Sub(c.Sickness))
	c.Volunteered = decimal.Max(decimal.Zero, c.Recorded.Sub(working))
}

// hours converts an FTE percentage into hours of one working day.
func (a *Aggregator) hours(percent decimal.Decimal) decimal.Decimal {
	return a.DayHours.Mul(percent).Div(hundred)
}

// =============================================================================
// TIMESHEET SUMMARY
// =============================================================================

// BuildTimesheetSummary classifies every date of financial year fy for one
// staff member, or for everyone under contract when staffID is empty.
func (a *Aggregator) BuildTimesheetSummary(ctx context.Context, staffID string, fy int) (*Summary, error) {
	period := calendar.FinancialYearPeriod(fy)
	snap, err := a.load(ctx, staffID, period)
	if err != nil {
		return nil, err
	}

	summary := &Summary{FinancialYear: fy, Period: period}
	for _, s := range snap.staff {
		entries, err := a.Time.FetchTimeEntries(ctx, s.ID, period)
		if err != nil {
			return nil, fmt.Errorf("fetch time entries for %s: %w", s.ID, err)
		}

		st := StaffTotals{StaffID: s.ID, Name: s.Name}
		for _, day := range a.classifyStaff(snap, s, entries) {
			summary.Days = append(summary.Days, day)
			st.Total.AddDay(day)
			summary.Total.AddDay(day)
		}
		summary.Staff = append(summary.Staff, st)
	}
	sortStaff(summary.Staff)

	a.Logger.Debug("timesheet summary built",
		"staff", staffID, "financial_year", fy, "days", len(summary.Days))
	return summary, nil
}

func sortStaff(staff []StaffTotals) {
	sort.SliceStable(staff, func(i, j int) bool {
		if staff[i].Name != staff[j].Name {
			return staff[i].Name < staff[j].Name
		}
		return staff[i].StaffID < staff[j].StaffID
	})
}
