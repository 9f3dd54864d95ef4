package timesheet_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FAKE SOURCES
// =============================================================================

type fakeStore struct {
	staff       []availability.Staff
	assignments []availability.Assignment
	capacities  []availability.CapacityOverride
	err         error
}

func (f *fakeStore) ListStaff(context.Context) ([]availability.Staff, error) {
	return f.staff, f.err
}

func (f *fakeStore) ListAssignments(_ context.Context, filter timesheet.AssignmentFilter) ([]availability.Assignment, error) {
	var out []availability.Assignment
	for _, a := range f.assignments {
		if filter.StaffID == "" || a.StaffID == filter.StaffID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCapacities(_ context.Context, filter timesheet.CapacityFilter) ([]availability.CapacityOverride, error) {
	var out []availability.CapacityOverride
	for _, c := range f.capacities {
		if filter.StaffID == "" || c.StaffID == filter.StaffID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeTime struct {
	entries []timesheet.TimeEntry
	rows    []timesheet.SummaryRow
	err     error
}

func (f *fakeTime) FetchTimeEntries(_ context.Context, staffID string, period calendar.Period) ([]timesheet.TimeEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []timesheet.TimeEntry
	for _, e := range f.entries {
		if e.StaffID == staffID && period.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeTime) FetchTimeSummary(context.Context, calendar.Period) ([]timesheet.SummaryRow, error) {
	return f.rows, f.err
}

type fakeLeave struct{ entries []leave.Entry }

func (f *fakeLeave) FetchLeaveEntries(_ context.Context, _ string, leaveYear string) ([]leave.Entry, error) {
	var out []leave.Entry
	for _, e := range f.entries {
		if calendar.LeaveYearLabel(e.Date.Year()) == leaveYear {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeHolidays struct{ holidays []leave.Holiday }

func (f *fakeHolidays) FetchBankHolidays(context.Context, string) ([]leave.Holiday, error) {
	return f.holidays, nil
}

// =============================================================================
// FIXTURE
// =============================================================================

func d(y int, m time.Month, day int) time.Time { return calendar.NewDate(y, m, day) }

func ptr(t time.Time) *time.Time { return &t }

func hrs(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func assertHours(t *testing.T, want float64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(hrs(want)), "%s: want %v, got %s", msg, want, got)
}

type fixture struct {
	store *fakeStore
	time  *fakeTime
	agg   *timesheet.Aggregator
}

// newFixture builds two RSEs for financial year 2025/26:
//   - rse-1 Alice: open-ended, 50% on a project all year, a day of leave
//     on 4 Aug and a half sick day on 5 Aug
//   - rse-2 Bob: contract ends 31 Dec 2025, unassigned
func newFixture() *fixture {
	store := &fakeStore{
		staff: []availability.Staff{
			{ID: "rse-1", Name: "Alice", ContractStart: d(2024, time.January, 1)},
			{ID: "rse-2", Name: "Bob", ContractStart: d(2025, time.January, 1), ContractEnd: ptr(d(2025, time.December, 31))},
			{ID: "rse-3", Name: "Carol", ContractStart: d(2020, time.January, 1), ContractEnd: ptr(d(2023, time.December, 31))},
		},
		assignments: []availability.Assignment{
			{ID: "a1", StaffID: "rse-1", ProjectID: "p1", FTE: decimal.NewFromInt(50),
				Start: ptr(d(2025, time.August, 1)), End: ptr(d(2026, time.July, 31))},
		},
	}
	tt := &fakeTime{
		entries: []timesheet.TimeEntry{
			{StaffID: "rse-1", Date: d(2025, time.August, 4), Hours: hrs(2), Billable: true, Project: "p1"},
			{StaffID: "rse-1", Date: d(2025, time.August, 6), Hours: hrs(5), Billable: true, Project: "p1"},
			{StaffID: "rse-1", Date: d(2025, time.August, 6), Hours: hrs(3), Billable: false, Project: "admin"},
		},
	}
	lv := &fakeLeave{entries: []leave.Entry{
		{StaffID: "rse-1", Date: d(2025, time.August, 4), Status: leave.StatusBooked, Duration: leave.FullDay, Kind: leave.KindAnnual},
		{StaffID: "rse-1", Date: d(2025, time.August, 5), Status: leave.StatusBooked, Duration: leave.HalfDay, Kind: leave.KindSickness},
	}}
	hol := &fakeHolidays{holidays: []leave.Holiday{
		{Date: d(2025, time.August, 25), Name: "Summer bank holiday"},
		{Date: d(2025, time.December, 25), Name: "Christmas Day"},
		{Date: d(2025, time.December, 26), Name: "Boxing Day"},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return d(2025, time.September, 1) }
	agg := timesheet.NewAggregator(timesheet.Config{
		Staff:       store,
		Assignments: store,
		Capacities:  store,
		Time:        tt,
		Leave:       leave.NewCalculator(lv, hol, logger),
		Engine:      availability.NewEngine(clock),
		Logger:      logger,
	})
	return &fixture{store: store, time: tt, agg: agg}
}

func dayOf(t *testing.T, s *timesheet.Summary, staffID string, date time.Time) timesheet.DailyClassification {
	t.Helper()
	for _, day := range s.Days {
		if day.StaffID == staffID && day.Date.Equal(date) {
			return day
		}
	}
	t.Fatalf("no classification for %s on %s", staffID, calendar.Format(date))
	return timesheet.DailyClassification{}
}

// =============================================================================
// TIMESHEET SUMMARY
// =============================================================================

func TestBuildTimesheetSummary_SingleStaff(t *testing.T) {
	f := newFixture()

	summary, err := f.agg.BuildTimesheetSummary(context.Background(), "rse-1", 2025)
	require.NoError(t, err)

	assert.Len(t, summary.Days, 365)
	require.Len(t, summary.Staff, 1)
	assert.Equal(t, "Alice", summary.Staff[0].Name)

	// Leave day: full capacity, half assigned, all of it leave; the 2h
	// recorded that day is volunteered
	leaveDay := dayOf(t, summary, "rse-1", d(2025, time.August, 4))
	assertHours(t, 7.4, leaveDay.Capacity, "capacity")
	assertHours(t, 3.7, leaveDay.Assigned, "assigned")
	assertHours(t, 7.4, leaveDay.Leave, "leave")
	assertHours(t, 2, leaveDay.Volunteered, "volunteered")

	sickDay := dayOf(t, summary, "rse-1", d(2025, time.August, 5))
	assertHours(t, 3.7, sickDay.Sickness, "sickness")
	assert.True(t, sickDay.Leave.IsZero())

	busyDay := dayOf(t, summary, "rse-1", d(2025, time.August, 6))
	assertHours(t, 8, busyDay.Recorded, "recorded")
	assertHours(t, 5, busyDay.Billable, "billable")
	assertHours(t, 3, busyDay.NonBillable, "non-billable")
	assertHours(t, 0.6, busyDay.Volunteered, "volunteered")

	assertHours(t, 7, summary.Total.Billable, "total billable")
	assertHours(t, 10, summary.Total.Recorded, "total recorded")
}

func TestBuildTimesheetSummary_NonWorkingDays(t *testing.T) {
	f := newFixture()

	summary, err := f.agg.BuildTimesheetSummary(context.Background(), "rse-1", 2025)
	require.NoError(t, err)

	saturday := dayOf(t, summary, "rse-1", d(2025, time.August, 2))
	assert.Equal(t, timesheet.ReasonWeekend, saturday.NonWorking)
	assert.True(t, saturday.Capacity.IsZero())

	bankHoliday := dayOf(t, summary, "rse-1", d(2025, time.August, 25))
	assert.Equal(t, "Summer bank holiday", bankHoliday.NonWorking)
	assert.True(t, bankHoliday.Capacity.IsZero())

	closure := dayOf(t, summary, "rse-1", d(2025, time.December, 29))
	assert.Equal(t, leave.ClosureName, closure.NonWorking)
}

func TestBuildTimesheetSummary_ContractBounds(t *testing.T) {
	f := newFixture()

	summary, err := f.agg.BuildTimesheetSummary(context.Background(), "", 2025)
	require.NoError(t, err)

	// Carol's contract ended before the year and is excluded
	require.Len(t, summary.Staff, 2)
	assert.Equal(t, "Alice", summary.Staff[0].Name)
	assert.Equal(t, "Bob", summary.Staff[1].Name)
	assert.Len(t, summary.Days, 2*365)

	working := dayOf(t, summary, "rse-2", d(2025, time.December, 1))
	assertHours(t, 7.4, working.Capacity, "capacity")
	assert.True(t, working.Assigned.IsZero())

	after := dayOf(t, summary, "rse-2", d(2026, time.January, 5))
	assert.Equal(t, timesheet.ReasonOffContract, after.NonWorking)
	assert.True(t, after.Capacity.IsZero())
}

func TestBuildTimesheetSummary_UnknownStaff(t *testing.T) {
	f := newFixture()

	_, err := f.agg.BuildTimesheetSummary(context.Background(), "rse-404", 2025)

	assert.ErrorIs(t, err, timesheet.ErrStaffNotFound)
}

func TestBuildTimesheetSummary_TimeTrackerFailurePropagates(t *testing.T) {
	f := newFixture()
	f.time.err = errors.New("time tracker unavailable")

	_, err := f.agg.BuildTimesheetSummary(context.Background(), "rse-1", 2025)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "time tracker unavailable")
}

func TestBuildTimesheetSummary_StaffFailurePropagates(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("database locked")

	_, err := f.agg.BuildTimesheetSummary(context.Background(), "", 2025)

	assert.Error(t, err)
}

// =============================================================================
// UTILISATION REPORT
// =============================================================================

func TestBuildUtilisationReport_TotalsAgree(t *testing.T) {
	f := newFixture()
	f.time.rows = []timesheet.SummaryRow{
		{StaffID: "rse-1", Date: d(2025, time.August, 6), Recorded: hrs(8), Billable: hrs(5)},
		{StaffID: "rse-1", Date: d(2026, time.March, 3), Recorded: hrs(6), Billable: hrs(4.5)},
		{StaffID: "rse-2", Date: d(2025, time.September, 1), Recorded: hrs(7.4), Billable: hrs(7.4)},
		{StaffID: "tracker-9", Date: d(2025, time.October, 1), Recorded: hrs(1), Billable: hrs(1)},
		{StaffID: "rse-1", Date: d(2025, time.July, 31), Recorded: hrs(100), Billable: hrs(100)},
	}

	report, err := f.agg.BuildUtilisationReport(context.Background(), 2025)
	require.NoError(t, err)

	require.Len(t, report.Months, 12)
	assert.Equal(t, "2025-08", report.Months[0].Month.String())
	assert.Equal(t, "2026-07", report.Months[11].Month.String())
	require.Len(t, report.RSEs, 3)

	monthSum, rseSum := decimal.Zero, decimal.Zero
	for _, m := range report.Months {
		monthSum = monthSum.Add(m.Total.Billable)
	}
	for _, r := range report.RSEs {
		rseSum = rseSum.Add(r.Total.Billable)
	}

	assertHours(t, 17.9, report.Total.Billable, "total billable")
	assert.True(t, monthSum.Equal(report.Total.Billable))
	assert.True(t, rseSum.Equal(report.Total.Billable))

	capMonths := decimal.Zero
	for _, m := range report.Months {
		capMonths = capMonths.Add(m.Total.Capacity)
	}
	assert.True(t, capMonths.Equal(report.Total.Capacity))
}

func TestBuildUtilisationReport_UnknownTrackerUserKeptByID(t *testing.T) {
	f := newFixture()
	f.time.rows = []timesheet.SummaryRow{
		{StaffID: "tracker-9", Date: d(2025, time.October, 1), Recorded: hrs(1), Billable: hrs(1)},
	}

	report, err := f.agg.BuildUtilisationReport(context.Background(), 2025)
	require.NoError(t, err)

	var orphan *timesheet.StaffTotals
	for i := range report.RSEs {
		if report.RSEs[i].StaffID == "tracker-9" {
			orphan = &report.RSEs[i]
		}
	}
	require.NotNil(t, orphan)
	assert.Empty(t, orphan.Name)
	assertHours(t, 1, orphan.Total.Volunteered, "volunteered")
	assert.True(t, orphan.Total.Capacity.IsZero())
}

func TestBuildUtilisationReport_OffContractStaffKeepName(t *testing.T) {
	// GIVEN: Carol left in 2023 but still recorded time in the year
	f := newFixture()
	f.time.rows = []timesheet.SummaryRow{
		{StaffID: "rse-3", Date: d(2025, time.October, 2), Recorded: hrs(2), Billable: hrs(1)},
	}

	// WHEN: Building the report
	report, err := f.agg.BuildUtilisationReport(context.Background(), 2025)
	require.NoError(t, err)

	// THEN: Her row carries her stored name and no capacity
	var carol *timesheet.StaffTotals
	for i := range report.RSEs {
		if report.RSEs[i].StaffID == "rse-3" {
			carol = &report.RSEs[i]
		}
	}
	require.NotNil(t, carol)
	assert.Equal(t, "Carol", carol.Name)
	assert.True(t, carol.Total.Capacity.IsZero())
	assertHours(t, 2, carol.Total.Volunteered, "volunteered")
}

func TestBuildUtilisationReport_Utilisation(t *testing.T) {
	f := newFixture()
	f.time.rows = []timesheet.SummaryRow{
		{StaffID: "rse-2", Date: d(2025, time.September, 1), Recorded: hrs(7.4), Billable: hrs(7.4)},
	}

	report, err := f.agg.BuildUtilisationReport(context.Background(), 2025)
	require.NoError(t, err)

	// September 2025 for Bob: 22 working days of 7.4h, 7.4h billable
	sept := report.Months[1]
	assert.Equal(t, "2025-09", sept.Month.String())
	assert.True(t, sept.Total.Billable.Equal(hrs(7.4)))
	assert.True(t, sept.Total.Utilisation().IsPositive())
}

func TestBuildUtilisationReport_SummaryFailurePropagates(t *testing.T) {
	f := newFixture()
	f.time.err = errors.New("report endpoint 503")

	_, err := f.agg.BuildUtilisationReport(context.Background(), 2025)

	assert.Error(t, err)
}
