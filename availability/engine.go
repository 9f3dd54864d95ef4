package availability

import (
	"sort"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine composes capacity resolution and assignment reduction.
type Engine struct {
	Clock calendar.Clock
}

// NewEngine creates an engine reading the given clock (nil = wall clock).
func NewEngine(clock calendar.Clock) *Engine {
	if clock == nil {
		clock = calendar.SystemClock
	}
	return &Engine{Clock: clock}
}

// Compute returns the capacity and availability grids for one staff member.
// Capacity is resolved first and assignments are subtracted from it.
//
// Overrides are ordered by Start before being applied, so a later-starting
// override wins over an earlier one for months both cover. Overrides with
// equal starts keep the order they were passed in.
func (e *Engine) Compute(staff Staff, assignments []Assignment, overrides []CapacityOverride) Result {
	return compute(staff, assignments, byStart(overrides), e.baselineEnd(staff, assignments))
}

// ComputeThrough is Compute with the grid extended to cover through even
// when no contract end or assignment reaches that far.
func (e *Engine) ComputeThrough(staff Staff, assignments []Assignment, overrides []CapacityOverride, through time.Time) Result {
	end := e.baselineEnd(staff, assignments)
	if through.After(end) {
		end = through
	}
	return compute(staff, assignments, byStart(overrides), end)
}

// baselineEnd is the latest assignment end. Without one it is the contract
// end, and today only for an open-ended contract.
func (e *Engine) baselineEnd(staff Staff, assignments []Assignment) time.Time {
	fallback := calendar.Today(e.Clock)
	if staff.ContractEnd != nil {
		fallback = *staff.ContractEnd
	}
	return AssignmentsEnd(assignments, fallback)
}

func byStart(overrides []CapacityOverride) []CapacityOverride {
	ordered := make([]CapacityOverride, len(overrides))
	copy(ordered, overrides)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start.Before(ordered[j].Start) })
	return ordered
}

func compute(staff Staff, assignments []Assignment, ordered []CapacityOverride, end time.Time) Result {
	capacity := ResolveCapacity(staff, ordered, end)
	available := capacity.Clone()
	ReduceAssignments(available, assignments)

	return Result{Capacity: capacity, Available: available}
}

// Availability is Compute without the capacity grid.
func (e *Engine) Availability(staff Staff, assignments []Assignment, overrides []CapacityOverride) Grid {
	return e.Compute(staff, assignments, overrides).Available
}

// NextAvailable scans the months of from's year, January first, for the
// first cell with positive free capacity. Null and non-positive cells are
// skipped. Returns ErrNotFound when the year has none.
func NextAvailable(grid Grid, from time.Time) (NextAvailability, error) {
	year := from.Year()
	row, ok := grid[year]
	if !ok {
		return NextAvailability{}, ErrNotFound
	}
	for i, cell := range row {
		if cell.Valid && cell.Decimal.IsPositive() {
			return NextAvailability{
				Date: calendar.NewDate(year, time.Month(i+1), 1),
				FTE:  cell.Decimal,
			}, nil
		}
	}
	return NextAvailability{}, ErrNotFound
}
