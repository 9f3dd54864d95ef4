/*
Package cache puts read-through TTL caches in front of the external
sources. Failed fetches are never cached.

Default lifetimes:
  - bank holidays: 24h
  - leave records: 1h
  - time entries and summaries: 1h
*/
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

const (
	DefaultHolidayTTL = 24 * time.Hour
	DefaultLeaveTTL   = time.Hour
	DefaultTimeTTL    = time.Hour

	defaultSize = 256
)

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holidays caches bank holidays per region.
type Holidays struct {
	next leave.HolidaySource
	lru  *expirable.LRU[string, []leave.Holiday]
}

var _ leave.HolidaySource = (*Holidays)(nil)

// NewHolidays wraps next with a cache of the given lifetime.
func NewHolidays(next leave.HolidaySource, ttl time.Duration) *Holidays {
	return &Holidays{next: next, lru: expirable.NewLRU[string, []leave.Holiday](8, nil, ttl)}
}

// FetchBankHolidays implements leave.HolidaySource.
func (c *Holidays) FetchBankHolidays(ctx context.Context, region string) ([]leave.Holiday, error) {
	if v, ok := c.lru.Get(region); ok {
		return v, nil
	}
	v, err := c.next.FetchBankHolidays(ctx, region)
	if err != nil {
		return nil, err
	}
	c.lru.Add(region, v)
	return v, nil
}

// Purge drops every cached region.
func (c *Holidays) Purge() { c.lru.Purge() }

// =============================================================================
// LEAVE
// =============================================================================

// Leave caches leave records per staff member and leave year.
type Leave struct {
	next leave.LeaveSource
	lru  *expirable.LRU[string, []leave.Entry]
}

var _ leave.LeaveSource = (*Leave)(nil)

// NewLeave wraps next with a cache of the given lifetime.
func NewLeave(next leave.LeaveSource, ttl time.Duration) *Leave {
	return &Leave{next: next, lru: expirable.NewLRU[string, []leave.Entry](defaultSize, nil, ttl)}
}

// FetchLeaveEntries answers a single staff member's lookup from the
// all-staff entry for the year when that entry is cached.
func (c *Leave) FetchLeaveEntries(ctx context.Context, staffID string, leaveYear string) ([]leave.Entry, error) {
	key := staffID + "|" + leaveYear
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	if staffID != "" {
		if all, ok := c.lru.Get("|" + leaveYear); ok {
			return forStaff(all, staffID), nil
		}
	}
	v, err := c.next.FetchLeaveEntries(ctx, staffID, leaveYear)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Purge drops every cached leave year.
func (c *Leave) Purge() { c.lru.Purge() }

func forStaff(entries []leave.Entry, staffID string) []leave.Entry {
	var out []leave.Entry
	for _, e := range entries {
		if e.StaffID == staffID {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// TimeEntries caches detailed entries and summary rows per period.
type TimeEntries struct {
	next    timesheet.TimeEntrySource
	entries *expirable.LRU[string, []timesheet.TimeEntry]
	summary *expirable.LRU[string, []timesheet.SummaryRow]
}

var _ timesheet.TimeEntrySource = (*TimeEntries)(nil)

// NewTimeEntries wraps next with caches of the given lifetime.
func NewTimeEntries(next timesheet.TimeEntrySource, ttl time.Duration) *TimeEntries {
	return &TimeEntries{
		next:    next,
		entries: expirable.NewLRU[string, []timesheet.TimeEntry](defaultSize, nil, ttl),
		summary: expirable.NewLRU[string, []timesheet.SummaryRow](16, nil, ttl),
	}
}

// FetchTimeEntries implements timesheet.TimeEntrySource.
func (c *TimeEntries) FetchTimeEntries(ctx context.Context, staffID string, period calendar.Period) ([]timesheet.TimeEntry, error) {
	key := fmt.Sprintf("%s|%s", staffID, period)
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	v, err := c.next.FetchTimeEntries(ctx, staffID, period)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, v)
	return v, nil
}

// FetchTimeSummary implements timesheet.TimeEntrySource.
func (c *TimeEntries) FetchTimeSummary(ctx context.Context, period calendar.Period) ([]timesheet.SummaryRow, error) {
	key := period.String()
	if v, ok := c.summary.Get(key); ok {
		return v, nil
	}
	v, err := c.next.FetchTimeSummary(ctx, period)
	if err != nil {
		return nil, err
	}
	c.summary.Add(key, v)
	return v, nil
}

// Purge drops both caches.
func (c *TimeEntries) Purge() {
	c.entries.Purge()
	c.summary.Purge()
}
