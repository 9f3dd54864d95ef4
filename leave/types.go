/*
Package leave answers two questions for the timesheet: how much booked
leave a staff member took in a date range, and how many days in a range
the institution is closed.

PURPOSE:
  Leave records live in an external HR spreadsheet, filed by leave year.
  Bank holidays come from the published England & Wales list. Closure
  days are the winter shutdown: eight days from 24 December, plus 23
  December when the 24th is a Tuesday.

FAILURE POLICY:
  Leave and holiday data are advisory. When either source fails the
  calculator logs and contributes zero, so reports still render.

SEE ALSO:
  - calculator.go: leave day counts
  - closures.go: bank holidays and closure days
  - sources/leavebook, sources/govuk: the concrete sources
*/
package leave

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// FIELD MAPPINGS - external codes to internal enumerations
// =============================================================================

// Status is the booking state of a leave entry.
type Status string

const (
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
)

// cancelledCode is the HR system's status code for a cancelled booking.
const cancelledCode = "3"

// ParseStatus maps an HR status code. Only "3" is cancelled.
func ParseStatus(code string) Status {
	if strings.TrimSpace(code) == cancelledCode {
		return StatusCancelled
	}
	return StatusBooked
}

// Duration is how much of a day an entry covers.
type Duration string

const (
	FullDay Duration = "full"
	HalfDay Duration = "half"
)

// ParseDuration maps the HR duration flag. "Y" is a full day.
func ParseDuration(flag string) Duration {
	if strings.EqualFold(strings.TrimSpace(flag), "Y") {
		return FullDay
	}
	return HalfDay
}

// Days is 1 for a full day and 0.5 for a half day.
func (d Duration) Days() float64 {
	if d == FullDay {
		return 1
	}
	return 0.5
}

// Kind separates annual leave from sickness absence.
type Kind string

const (
	KindAnnual   Kind = "annual"
	KindSickness Kind = "sickness"
)

// ParseKind maps the HR absence type.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sick", "sickness", "sick leave":
		return KindSickness
	default:
		return KindAnnual
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// Entry is one day (or half day) of leave.
type Entry struct {
	StaffID  string
	Date     time.Time
	Status   Status
	Duration Duration
	Kind     Kind
}

// Holiday is a published bank holiday.
type Holiday struct {
	Date time.Time
	Name string
}

// RegionEnglandAndWales is the bank-holiday division the institution follows.
const RegionEnglandAndWales = "england-and-wales"

// =============================================================================
// SOURCES
// =============================================================================

// LeaveSource fetches leave records for a leave year. An empty staffID
// asks for every staff member.
type LeaveSource interface {
	FetchLeaveEntries(ctx context.Context, staffID string, leaveYear string) ([]Entry, error)
}

// HolidaySource fetches published bank holidays for a region.
type HolidaySource interface {
	FetchBankHolidays(ctx context.Context, region string) ([]Holiday, error)
}
