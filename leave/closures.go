package leave

import (
	"context"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
)

// ClosureName labels institutional closure days in non-working-day sets.
const ClosureName = "University closure"

// closureBlockDays is the length of the winter closure from 24 December.
const closureBlockDays = 8

// ClosureDays returns the winter closure block for year: 24–31 December,
// preceded by 23 December when the 24th falls on a Tuesday.
func ClosureDays(year int) []time.Time {
	anchor := calendar.NewDate(year, time.December, 24)

	var days []time.Time
	if anchor.Weekday() == time.Tuesday {
		days = append(days, anchor.AddDate(0, 0, -1))
	}
	for i := 0; i < closureBlockDays; i++ {
		days = append(days, anchor.AddDate(0, 0, i))
	}
	return days
}

// ClosureCount splits the non-working days of a range. The two counts are
// disjoint: a closure day that is also a bank holiday counts once, as a
// bank holiday.
type ClosureCount struct {
	BankHolidays int
	Closures     int
}

// Total is bank holidays plus closure days.
func (c ClosureCount) Total() int { return c.BankHolidays + c.Closures }

// bankHolidays fetches the region's holidays; a failed fetch is logged and
// yields none.
func (c *Calculator) bankHolidays(ctx context.Context) []Holiday {
	holidays, err := c.Holidays.FetchBankHolidays(ctx, c.Region)
	if err != nil {
		c.Logger.Warn("bank holiday fetch failed, counting no holidays",
			"region", c.Region, "error", err)
		return nil
	}
	return holidays
}

// CountClosures counts bank holidays and closure days within [start, end].
func (c *Calculator) CountClosures(ctx context.Context, start, end time.Time) ClosureCount {
	period := calendar.NewPeriod(start, end)

	var count ClosureCount
	holidaySet := make(map[time.Time]bool)
	for _, h := range c.bankHolidays(ctx) {
		d := calendar.DateOnly(h.Date)
		if period.Contains(d) && !holidaySet[d] {
			holidaySet[d] = true
			count.BankHolidays++
		}
	}

	for _, year := range calendar.YearRange(period.Start, period.End) {
		for _, d := range ClosureDays(year) {
			if period.Contains(d) && !holidaySet[d] {
				count.Closures++
			}
		}
	}
	return count
}

// ClosureDaysInRange returns bank holidays plus closure days within [start, end].
func (c *Calculator) ClosureDaysInRange(ctx context.Context, start, end time.Time) int {
	return c.CountClosures(ctx, start, end).Total()
}

// NonWorkingDays maps every bank holiday and closure day within [start, end]
// to its name.
func (c *Calculator) NonWorkingDays(ctx context.Context, start, end time.Time) map[time.Time]string {
	period := calendar.NewPeriod(start, end)
	days := make(map[time.Time]string)

	for _, h := range c.bankHolidays(ctx) {
		d := calendar.DateOnly(h.Date)
		if period.Contains(d) {
			days[d] = h.Name
		}
	}
	for _, year := range calendar.YearRange(period.Start, period.End) {
		for _, d := range ClosureDays(year) {
			if _, ok := days[d]; !ok && period.Contains(d) {
				days[d] = ClosureName
			}
		}
	}
	return days
}
