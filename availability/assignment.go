package availability

import (
	"sort"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ASSIGNMENT REDUCTION
// =============================================================================

// ReduceAssignments subtracts each assignment's FTE from every month in its
// [Start, End] span. Cells may go negative. Assignments without FTE or
// bounds are skipped, and months outside the grid are ignored.
func ReduceAssignments(grid Grid, assignments []Assignment) {
	for _, a := range assignments {
		if a.Validate() != nil {
			continue
		}
		for _, ym := range calendar.MonthsBetween(*a.Start, *a.End) {
			grid.Sub(ym.Year, ym.Index(), a.FTE)
		}
	}
}

// =============================================================================
// MONTHLY RUNS - ingestion of per-month FTE plans
// =============================================================================

// MonthlyFTE is one month of a project's staffing plan.
type MonthlyFTE struct {
	Month calendar.YearMonth
	FTE   decimal.Decimal
}

// MergeMonthlyRuns turns a per-month FTE plan into assignments, collapsing
// consecutive calendar months with the same FTE into one run. Months with
// no FTE break a run and produce nothing.
func MergeMonthlyRuns(staffID, projectID, rate string, plan []MonthlyFTE) []Assignment {
	months := make([]MonthlyFTE, len(plan))
	copy(months, plan)
	sort.SliceStable(months, func(i, j int) bool { return months[i].Month.Before(months[j].Month) })

	var (
		runs []Assignment
		cur  *Assignment
		last calendar.YearMonth
	)
	flush := func() {
		if cur != nil {
			end := last.Last()
			cur.End = &end
			runs = append(runs, *cur)
			cur = nil
		}
	}

	for _, m := range months {
		if !m.FTE.IsPositive() {
			flush()
			continue
		}
		if cur != nil && last.Next() == m.Month && cur.FTE.Equal(m.FTE) {
			last = m.Month
			continue
		}
		flush()
		start := m.Month.First()
		cur = &Assignment{
			StaffID:   staffID,
			ProjectID: projectID,
			FTE:       m.FTE,
			Start:     &start,
			Rate:      rate,
		}
		last = m.Month
	}
	flush()

	return runs
}
