package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
)

// =============================================================================
// UTILISATION REPORT
// =============================================================================

// BuildUtilisationReport aggregates financial year fy by month and by staff
// member. Recorded and billable hours come from the time tracker's summary
// rows; capacity, assignment and leave hours from the daily classification.
// Each day is added to its month, its staff member and the grand total in
// one step, so the three always agree.
//
// Summary rows for staff outside the year's contracts keep their stored
// name; rows for staff the store does not know are kept under their raw
// tracker ID. Neither carries capacity, so all their time reads as
// volunteered.
func (a *Aggregator) BuildUtilisationReport(ctx context.Context, fy int) (*UtilisationReport, error) {
	period := calendar.FinancialYearPeriod(fy)
	snap, err := a.load(ctx, "", period)
	if err != nil {
		return nil, err
	}
	rows, err := a.Time.FetchTimeSummary(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("fetch time summary: %w", err)
	}

	report := &UtilisationReport{FinancialYear: fy, Period: period}
	monthIndex := make(map[calendar.YearMonth]int)
	for i, ym := range calendar.FinancialYearMonths(fy) {
		report.Months = append(report.Months, MonthTotals{Month: ym})
		monthIndex[ym] = i
	}

	type staffDays struct {
		totals StaffTotals
		days   map[time.Time]*DailyClassification
		order  []time.Time
	}
	var (
		staffOrder []string
		byStaff    = make(map[string]*staffDays)
	)
	entry := func(id, name string) *staffDays {
		sd, ok := byStaff[id]
		if !ok {
			sd = &staffDays{totals: StaffTotals{StaffID: id, Name: name}, days: make(map[time.Time]*DailyClassification)}
			byStaff[id] = sd
			staffOrder = append(staffOrder, id)
		}
		return sd
	}

	for _, s := range snap.staff {
		sd := entry(s.ID, s.Name)
		for _, d := range a.classifyStaff(snap, s, nil) {
			d := d
			sd.days[d.Date] = &d
			sd.order = append(sd.order, d.Date)
		}
	}

	for _, row := range rows {
		if !period.Contains(row.Date) {
			continue
		}
		day := calendar.DateOnly(row.Date)
		sd := entry(row.StaffID, snap.names[row.StaffID])
		d, ok := sd.days[day]
		if !ok {
			d = &DailyClassification{Date: day, StaffID: row.StaffID}
			sd.days[day] = d
			sd.order = append(sd.order, day)
		}
		d.Recorded = d.Recorded.Add(row.Recorded)
		d.Billable = d.Billable.Add(row.Billable)
		d.NonBillable = d.NonBillable.Add(row.Recorded.Sub(row.Billable))
	}

	for _, id := range staffOrder {
		sd := byStaff[id]
		for _, day := range sd.order {
			d := sd.days[day]
			d.settleVolunteered()
			i := monthIndex[calendar.MonthOf(day)]
			report.Months[i].Total.AddDay(*d)
			sd.totals.Total.AddDay(*d)
			report.Total.AddDay(*d)
		}
		report.RSEs = append(report.RSEs, sd.totals)
	}
	sortStaff(report.RSEs)

	a.Logger.Debug("utilisation report built",
		"financial_year", fy, "rses", len(report.RSEs), "rows", len(rows))
	return report, nil
}
