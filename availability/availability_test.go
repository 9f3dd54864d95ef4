package availability_test

import (
	"testing"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HELPERS
// =============================================================================

func date(y int, m time.Month, d int) time.Time { return calendar.NewDate(y, m, d) }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func pct(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func fixedClock(t time.Time) calendar.Clock { return func() time.Time { return t } }

func assertCell(t *testing.T, g availability.Grid, year, month int, want int64) {
	t.Helper()
	cell := g.Cell(year, month)
	require.True(t, cell.Valid, "cell %d/%d should be in contract", year, month+1)
	assert.True(t, cell.Decimal.Equal(pct(want)), "cell %d/%d: want %d, got %s", year, month+1, want, cell.Decimal)
}

func assertNull(t *testing.T, g availability.Grid, year, month int) {
	t.Helper()
	assert.False(t, g.Cell(year, month).Valid, "cell %d/%d should be null", year, month+1)
}

// =============================================================================
// CAPACITY RESOLUTION
// =============================================================================

func TestCompute_OpenEndedContract_NoAssignments(t *testing.T) {
	// GIVEN: An RSE who started mid-February with no end date and no work
	engine := availability.NewEngine(fixedClock(date(2026, time.March, 10)))
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2026, time.February, 15)}

	// WHEN: Computing availability
	result := engine.Compute(staff, nil, nil)

	// THEN: January is null and every month from February on is 100
	assert.Equal(t, []int{2026}, result.Available.Years())
	assertNull(t, result.Available, 2026, 0)
	for m := 1; m < 12; m++ {
		assertCell(t, result.Available, 2026, m, 100)
	}
}

func TestResolveCapacity_ContractEndNullsLaterMonths(t *testing.T) {
	staff := availability.Staff{
		ID:            "rse-1",
		ContractStart: date(2024, time.March, 1),
		ContractEnd:   datePtr(2025, time.June, 30),
	}

	grid := availability.ResolveCapacity(staff, nil, date(2025, time.January, 1))

	assert.Equal(t, []int{2024, 2025}, grid.Years())
	assertNull(t, grid, 2024, 1)
	assertCell(t, grid, 2024, 2, 100)
	assertCell(t, grid, 2025, 5, 100)
	assertNull(t, grid, 2025, 6)
	assertNull(t, grid, 2025, 11)
}

func TestCompute_EndedContract_NoAssignments(t *testing.T) {
	// GIVEN: A contract that ended years ago and no assignments
	staff := availability.Staff{
		ID:            "rse-1",
		ContractStart: date(2018, time.January, 1),
		ContractEnd:   datePtr(2020, time.June, 30),
	}
	engine := availability.NewEngine(fixedClock(date(2026, time.October, 16)))

	// WHEN: Computing availability
	result := engine.Compute(staff, nil, nil)

	// THEN: The grid stops at the contract end year, not at today
	assert.Equal(t, []int{2018, 2019, 2020}, result.Available.Years())
	assert.Equal(t, []int{2018, 2019, 2020}, result.Capacity.Years())
	assertCell(t, result.Available, 2020, 5, 100)
	assertNull(t, result.Available, 2020, 6)

	// AND: Extending the grid still reaches the requested date
	through := engine.ComputeThrough(staff, nil, nil, date(2021, time.July, 31))
	assert.Equal(t, []int{2018, 2019, 2020, 2021}, through.Capacity.Years())
}

func TestResolveCapacity_GridExtendsToLastAssignmentYear(t *testing.T) {
	// GIVEN: Contract ends 2025 but an assignment runs into 2026
	staff := availability.Staff{
		ID:            "rse-1",
		ContractStart: date(2025, time.January, 1),
		ContractEnd:   datePtr(2025, time.December, 31),
	}
	assignments := []availability.Assignment{
		{ID: "a1", FTE: pct(50), Start: datePtr(2025, time.June, 1), End: datePtr(2026, time.March, 31)},
	}

	result := availability.NewEngine(fixedClock(date(2025, time.May, 1))).Compute(staff, assignments, nil)

	// THEN: 2026 exists but is entirely out of contract
	assert.Equal(t, []int{2025, 2026}, result.Available.Years())
	assertCell(t, result.Available, 2025, 11, 50)
	for m := 0; m < 12; m++ {
		assertNull(t, result.Available, 2026, m)
	}
}

func TestResolveCapacity_OverrideAppliesToTouchedMonths(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(60), Start: date(2025, time.March, 20), End: datePtr(2025, time.May, 2)},
	}

	grid := availability.ResolveCapacity(staff, overrides, date(2025, time.December, 31))

	assertCell(t, grid, 2025, 1, 100)
	assertCell(t, grid, 2025, 2, 60)
	assertCell(t, grid, 2025, 3, 60)
	assertCell(t, grid, 2025, 4, 60)
	assertCell(t, grid, 2025, 5, 100)
}

func TestResolveCapacity_OverrideAllowsOvertime(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(120), Start: date(2025, time.April, 1), End: datePtr(2025, time.April, 30)},
	}

	grid := availability.ResolveCapacity(staff, overrides, date(2025, time.December, 31))

	assertCell(t, grid, 2025, 3, 120)
}

func TestComputeThrough_ExtendsGridPastToday(t *testing.T) {
	// GIVEN: An open-ended RSE on a 60% open override, queried in 2025
	engine := availability.NewEngine(fixedClock(date(2025, time.September, 1)))
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2024, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(60), Start: date(2025, time.June, 1)},
	}

	// WHEN: Computing through the end of the financial year
	result := engine.ComputeThrough(staff, nil, overrides, date(2026, time.July, 31))

	// THEN: 2026 is in the grid and the open override runs into it
	assert.Equal(t, []int{2024, 2025, 2026}, result.Capacity.Years())
	assertCell(t, result.Capacity, 2026, 6, 60)
	assertCell(t, result.Capacity, 2026, 7, 100)

	// AND: plain Compute stops at today's year
	assert.Equal(t, []int{2024, 2025}, engine.Compute(staff, nil, overrides).Capacity.Years())
}

func TestResolveCapacity_OpenOverrideStopsAtAssignmentsEnd(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(80), Start: date(2025, time.February, 1)},
	}

	grid := availability.ResolveCapacity(staff, overrides, date(2025, time.September, 15))

	assertCell(t, grid, 2025, 1, 80)
	assertCell(t, grid, 2025, 8, 80)
	assertCell(t, grid, 2025, 9, 100)
}

func TestResolveCapacity_LaterOverrideWins(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "first", Capacity: pct(50), Start: date(2025, time.January, 1), End: datePtr(2025, time.June, 30)},
		{ID: "second", Capacity: pct(80), Start: date(2025, time.April, 1), End: datePtr(2025, time.August, 31)},
	}

	grid := availability.ResolveCapacity(staff, overrides, date(2025, time.December, 31))

	assertCell(t, grid, 2025, 2, 50)
	assertCell(t, grid, 2025, 3, 80)
	assertCell(t, grid, 2025, 7, 80)
}

func TestCompute_SortsOverridesByStart(t *testing.T) {
	// GIVEN: Overrides passed newest first
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "newer", Capacity: pct(80), Start: date(2025, time.April, 1), End: datePtr(2025, time.August, 31)},
		{ID: "older", Capacity: pct(50), Start: date(2025, time.January, 1), End: datePtr(2025, time.June, 30)},
	}

	result := availability.NewEngine(fixedClock(date(2025, time.December, 1))).Compute(staff, nil, overrides)

	// THEN: The later-starting override still wins the overlap
	assertCell(t, result.Capacity, 2025, 4, 80)
	assertCell(t, result.Capacity, 2025, 1, 50)
}

func TestResolveCapacity_OverrideDoesNotReviveOutOfContractMonths(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.June, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(50), Start: date(2025, time.January, 1), End: datePtr(2025, time.December, 31)},
	}

	grid := availability.ResolveCapacity(staff, overrides, date(2025, time.December, 31))

	assertNull(t, grid, 2025, 0)
	assertCell(t, grid, 2025, 5, 50)
}

// =============================================================================
// ASSIGNMENT REDUCTION
// =============================================================================

func TestReduceAssignments_OverAllocationGoesNegative(t *testing.T) {
	// GIVEN: Two assignments of 60 and 50 in the same month
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	assignments := []availability.Assignment{
		{ID: "a1", FTE: pct(60), Start: datePtr(2025, time.March, 1), End: datePtr(2025, time.March, 31)},
		{ID: "a2", FTE: pct(50), Start: datePtr(2025, time.March, 1), End: datePtr(2025, time.March, 31)},
	}

	result := availability.NewEngine(fixedClock(date(2025, time.January, 1))).Compute(staff, assignments, nil)

	// THEN: 100 - 60 - 50 = -10, not clamped
	assertCell(t, result.Available, 2025, 2, -10)
	assertCell(t, result.Capacity, 2025, 2, 100)
}

func TestReduceAssignments_SkipsIncompleteAssignments(t *testing.T) {
	grid := availability.NewGrid(2025, 2025)
	for m := 0; m < 12; m++ {
		grid.Set(2025, m, pct(100))
	}

	availability.ReduceAssignments(grid, []availability.Assignment{
		{ID: "no-end", FTE: pct(50), Start: datePtr(2025, time.January, 1)},
		{ID: "no-fte", FTE: decimal.Zero, Start: datePtr(2025, time.January, 1), End: datePtr(2025, time.December, 31)},
		{ID: "outside", FTE: pct(50), Start: datePtr(2030, time.January, 1), End: datePtr(2030, time.June, 30)},
	})

	for m := 0; m < 12; m++ {
		assertCell(t, grid, 2025, m, 100)
	}
	assert.Equal(t, []int{2025}, grid.Years())
}

func TestCompute_OverrideThenAssignment(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(80), Start: date(2025, time.January, 1), End: datePtr(2025, time.December, 31)},
	}
	assignments := []availability.Assignment{
		{ID: "a1", FTE: pct(30), Start: datePtr(2025, time.February, 1), End: datePtr(2025, time.February, 28)},
	}

	result := availability.NewEngine(fixedClock(date(2025, time.January, 1))).Compute(staff, assignments, overrides)

	assertCell(t, result.Available, 2025, 1, 50)
	assertCell(t, result.Capacity, 2025, 1, 80)
}

// =============================================================================
// NEXT AVAILABLE
// =============================================================================

func TestNextAvailable_ReturnsOverrideValue(t *testing.T) {
	// GIVEN: A 60% override over 2025 and no assignments
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2024, time.January, 1)}
	overrides := []availability.CapacityOverride{
		{ID: "c1", Capacity: pct(60), Start: date(2025, time.January, 1), End: datePtr(2025, time.December, 31)},
	}
	grid := availability.NewEngine(fixedClock(date(2025, time.June, 1))).Availability(staff, nil, overrides)

	// WHEN: Asking for the next available month in 2025
	next, err := availability.NextAvailable(grid, date(2025, time.June, 1))

	// THEN: January 2025 at 60%
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 1), next.Date)
	assert.True(t, next.FTE.Equal(pct(60)))
}

func TestNextAvailable_SkipsFullyAssignedMonths(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	assignments := []availability.Assignment{
		{ID: "a1", FTE: pct(100), Start: datePtr(2025, time.January, 1), End: datePtr(2025, time.April, 30)},
		{ID: "a2", FTE: pct(120), Start: datePtr(2025, time.May, 1), End: datePtr(2025, time.May, 31)},
		{ID: "a3", FTE: pct(75), Start: datePtr(2025, time.June, 1), End: datePtr(2025, time.December, 31)},
	}
	grid := availability.NewEngine(fixedClock(date(2025, time.January, 1))).Availability(staff, assignments, nil)

	next, err := availability.NextAvailable(grid, date(2025, time.February, 1))

	require.NoError(t, err)
	assert.Equal(t, date(2025, time.June, 1), next.Date)
	assert.True(t, next.FTE.Equal(pct(25)))
}

func TestNextAvailable_NotFound(t *testing.T) {
	staff := availability.Staff{ID: "rse-1", ContractStart: date(2025, time.January, 1)}
	assignments := []availability.Assignment{
		{ID: "a1", FTE: pct(100), Start: datePtr(2025, time.January, 1), End: datePtr(2025, time.December, 31)},
	}
	grid := availability.NewEngine(fixedClock(date(2025, time.January, 1))).Availability(staff, assignments, nil)

	_, err := availability.NextAvailable(grid, date(2025, time.March, 1))
	assert.ErrorIs(t, err, availability.ErrNotFound)

	_, err = availability.NextAvailable(grid, date(2031, time.March, 1))
	assert.ErrorIs(t, err, availability.ErrNotFound)
}

// =============================================================================
// MONTHLY RUNS
// =============================================================================

func TestMergeMonthlyRuns_CollapsesConsecutiveEqualMonths(t *testing.T) {
	plan := []availability.MonthlyFTE{
		{Month: calendar.YearMonth{Year: 2025, Month: time.March}, FTE: pct(50)},
		{Month: calendar.YearMonth{Year: 2025, Month: time.January}, FTE: pct(50)},
		{Month: calendar.YearMonth{Year: 2025, Month: time.February}, FTE: pct(50)},
		{Month: calendar.YearMonth{Year: 2025, Month: time.April}, FTE: pct(20)},
		{Month: calendar.YearMonth{Year: 2025, Month: time.May}, FTE: decimal.Zero},
		{Month: calendar.YearMonth{Year: 2025, Month: time.June}, FTE: pct(20)},
	}

	runs := availability.MergeMonthlyRuns("rse-1", "proj-1", "", plan)

	require.Len(t, runs, 3)
	assert.Equal(t, date(2025, time.January, 1), *runs[0].Start)
	assert.Equal(t, date(2025, time.March, 31), *runs[0].End)
	assert.True(t, runs[0].FTE.Equal(pct(50)))
	assert.Equal(t, date(2025, time.April, 30), *runs[1].End)
	assert.Equal(t, date(2025, time.June, 1), *runs[2].Start)
	assert.Equal(t, "standard", runs[2].RateOrDefault())
}

func TestMergeMonthlyRuns_GapBreaksRun(t *testing.T) {
	plan := []availability.MonthlyFTE{
		{Month: calendar.YearMonth{Year: 2025, Month: time.November}, FTE: pct(40)},
		{Month: calendar.YearMonth{Year: 2026, Month: time.January}, FTE: pct(40)},
	}

	runs := availability.MergeMonthlyRuns("rse-1", "proj-1", "senior", plan)

	require.Len(t, runs, 2)
	assert.Equal(t, "senior", runs[0].RateOrDefault())
}

func TestAssignment_Validate(t *testing.T) {
	a := availability.Assignment{ID: "a1", FTE: pct(10), Start: datePtr(2025, time.January, 1)}
	err := a.Validate()

	require.Error(t, err)
	assert.True(t, availability.IsValidation(err))
	assert.Contains(t, err.Error(), "end")
}
