package availability

import (
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/shopspring/decimal"
)

// FullTime is the baseline capacity of an in-contract month.
var FullTime = decimal.NewFromInt(100)

// =============================================================================
// CAPACITY RESOLUTION
// =============================================================================

// AssignmentsEnd returns the latest end date among the assignments, or
// fallback when none carries an end.
func AssignmentsEnd(assignments []Assignment, fallback time.Time) time.Time {
	var latest time.Time
	for _, a := range assignments {
		if a.End != nil && a.End.After(latest) {
			latest = *a.End
		}
	}
	if latest.IsZero() {
		return calendar.DateOnly(fallback)
	}
	return calendar.DateOnly(latest)
}

// gridEnd is the later of the contract end and the assignments end; it is
// where open-ended overrides stop.
func gridEnd(staff Staff, assignmentsEnd time.Time) time.Time {
	if staff.ContractEnd != nil && staff.ContractEnd.After(assignmentsEnd) {
		return calendar.DateOnly(*staff.ContractEnd)
	}
	return calendar.DateOnly(assignmentsEnd)
}

// ResolveCapacity builds the baseline grid for a staff member: 100 for every
// month under contract, null outside it, then each override's capacity
// written over every in-contract month its span touches.
//
// Overrides are applied in the order given; when two cover the same month
// the later one wins. Invalid overrides are skipped.
func ResolveCapacity(staff Staff, overrides []CapacityOverride, assignmentsEnd time.Time) Grid {
	start := calendar.DateOnly(staff.ContractStart)
	end := gridEnd(staff, assignmentsEnd)
	if end.Before(start) {
		end = start
	}

	grid := NewGrid(start.Year(), end.Year())

	// An open-ended contract runs to the end of the grid.
	contractLast := calendar.YearMonth{Year: end.Year(), Month: time.December}
	if staff.ContractEnd != nil {
		contractLast = calendar.MonthOf(*staff.ContractEnd)
	}
	for _, ym := range calendar.MonthsBetween(start, contractLast.First()) {
		grid.Set(ym.Year, ym.Index(), FullTime)
	}

	for _, o := range overrides {
		if o.Validate() != nil {
			continue
		}
		oEnd := end
		if o.End != nil {
			oEnd = *o.End
		}
		for _, ym := range calendar.MonthsBetween(o.Start, oEnd) {
			if !grid.Cell(ym.Year, ym.Index()).Valid {
				continue
			}
			grid.Set(ym.Year, ym.Index(), o.Capacity)
		}
	}

	return grid
}
