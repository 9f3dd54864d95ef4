/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Decimal values from
  the domain are rendered as JSON numbers, and grid cells outside a
  contract as null.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  RSEs:         RSEDTO, CreateRSERequest, AvailabilityDTO
  Assignments:  AssignmentDTO, CreateAssignmentRequest, PlanAssignmentsRequest
  Capacities:   CapacityDTO, CreateCapacityRequest
  Timesheets:   TimesheetSummaryDTO, UtilisationReportDTO, TotalsDTO
  Leave:        LeaveDTO, ClosuresDTO, FinancialYearDTO

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

// =============================================================================
// RSES
// =============================================================================

// RSEDTO represents an RSE in API responses.
type RSEDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email,omitempty"`
	ContractStart     string   `json:"contractStart"`
	ContractEnd       *string  `json:"contractEnd"`
	NextAvailableDate *string  `json:"nextAvailableDate"`
	NextAvailableFTE  *float64 `json:"nextAvailableFte"`
}

// CreateRSERequest is the request body for creating an RSE. ID is optional.
type CreateRSERequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	ContractStart string  `json:"contractStart"`
	ContractEnd   *string `json:"contractEnd"`
}

// GridDTO is year -> 12 monthly cells; null is out of contract.
type GridDTO map[int][]*float64

// AvailabilityDTO holds both grids for one RSE.
type AvailabilityDTO struct {
	RSE       string  `json:"rse"`
	Capacity  GridDTO `json:"capacity"`
	Available GridDTO `json:"available"`
}

// =============================================================================
// ASSIGNMENTS & CAPACITIES
// =============================================================================

// AssignmentDTO represents an assignment in API responses.
type AssignmentDTO struct {
	ID      string  `json:"id"`
	RSE     string  `json:"rse"`
	Project string  `json:"project"`
	FTE     float64 `json:"fte"`
	Start   *string `json:"start"`
	End     *string `json:"end"`
	Rate    string  `json:"rate"`
}

// CreateAssignmentRequest is the request body for committing an RSE to a project.
type CreateAssignmentRequest struct {
	RSE     string  `json:"rse"`
	Project string  `json:"project"`
	FTE     float64 `json:"fte"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Rate    string  `json:"rate"`
}

// MonthPlanDTO is one month of a plan, Month as YYYY-MM.
type MonthPlanDTO struct {
	Month string  `json:"month"`
	FTE   float64 `json:"fte"`
}

// PlanAssignmentsRequest replaces an RSE's assignments to a project with
// runs derived from a month-by-month plan.
type PlanAssignmentsRequest struct {
	RSE     string         `json:"rse"`
	Project string         `json:"project"`
	Rate    string         `json:"rate"`
	Months  []MonthPlanDTO `json:"months"`
}

// CapacityDTO represents a capacity override in API responses.
type CapacityDTO struct {
	ID       string  `json:"id"`
	RSE      string  `json:"rse"`
	Capacity float64 `json:"capacity"`
	Start    string  `json:"start"`
	End      *string `json:"end"`
}

// CreateCapacityRequest is the request body for a capacity override. End is optional.
type CreateCapacityRequest struct {
	RSE      string  `json:"rse"`
	Capacity float64 `json:"capacity"`
	Start    string  `json:"start"`
	End      *string `json:"end"`
}

// =============================================================================
// TIMESHEETS
// =============================================================================

// TotalsDTO is a set of hour buckets.
type TotalsDTO struct {
	Capacity    float64 `json:"capacity"`
	Assigned    float64 `json:"assigned"`
	Leave       float64 `json:"leave"`
	Sickness    float64 `json:"sickness"`
	Available   float64 `json:"available"`
	Recorded    float64 `json:"recorded"`
	Billable    float64 `json:"billable"`
	NonBillable float64 `json:"nonBillable"`
	Volunteered float64 `json:"volunteered"`
	Utilisation float64 `json:"utilisation"`
}

// DayDTO is one classified day of a timesheet.
type DayDTO struct {
	Date        string  `json:"date"`
	RSE         string  `json:"rse"`
	NonWorking  string  `json:"nonWorking,omitempty"`
	Capacity    float64 `json:"capacity"`
	Assigned    float64 `json:"assigned"`
	Leave       float64 `json:"leave"`
	Sickness    float64 `json:"sickness"`
	Recorded    float64 `json:"recorded"`
	Billable    float64 `json:"billable"`
	NonBillable float64 `json:"nonBillable"`
	Volunteered float64 `json:"volunteered"`
}

// StaffTotalsDTO is one RSE's totals in a report.
type StaffTotalsDTO struct {
	RSE   string    `json:"rse"`
	Name  string    `json:"name"`
	Total TotalsDTO `json:"total"`
}

// MonthTotalsDTO is one month of a utilisation report, Month as YYYY-MM.
type MonthTotalsDTO struct {
	Month string    `json:"month"`
	Total TotalsDTO `json:"total"`
}

// TimesheetSummaryDTO is the response for GET /api/timesheets/summary.
type TimesheetSummaryDTO struct {
	FinancialYear string           `json:"financialYear"`
	Start         string           `json:"start"`
	End           string           `json:"end"`
	Days          []DayDTO         `json:"days"`
	RSEs          []StaffTotalsDTO `json:"rses"`
	Total         TotalsDTO        `json:"total"`
}

// UtilisationReportDTO is the response for GET /api/timesheets/utilisation.
type UtilisationReportDTO struct {
	FinancialYear string           `json:"financialYear"`
	Start         string           `json:"start"`
	End           string           `json:"end"`
	Months        []MonthTotalsDTO `json:"months"`
	RSEs          []StaffTotalsDTO `json:"rses"`
	Total         TotalsDTO        `json:"total"`
}

// =============================================================================
// LEAVE & CALENDAR
// =============================================================================

// LeaveEntryDTO is one booked day or half day.
type LeaveEntryDTO struct {
	Date     string  `json:"date"`
	Duration float64 `json:"duration"`
	Type     string  `json:"type"`
}

// LeaveDTO is an RSE's booked leave over a range.
type LeaveDTO struct {
	RSE     string          `json:"rse"`
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Days    float64         `json:"days"`
	Entries []LeaveEntryDTO `json:"entries"`
}

// ClosuresDTO counts bank holidays and closure days in a range.
type ClosuresDTO struct {
	Start        string            `json:"start"`
	End          string            `json:"end"`
	BankHolidays int               `json:"bankHolidays"`
	Closures     int               `json:"closures"`
	Total        int               `json:"total"`
	Days         map[string]string `json:"days"`
}

// FinancialYearDTO describes one financial year.
type FinancialYearDTO struct {
	Year  int    `json:"year"`
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func num(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := calendar.Format(*t)
	return &s
}

func toRSEDTO(s availability.Staff) RSEDTO {
	return RSEDTO{
		ID:            s.ID,
		Name:          s.Name,
		Email:         s.Email,
		ContractStart: calendar.Format(s.ContractStart),
		ContractEnd:   datePtr(s.ContractEnd),
	}
}

func toGridDTO(g availability.Grid) GridDTO {
	out := make(GridDTO, len(g))
	for year, row := range g {
		cells := make([]*float64, len(row))
		for i, c := range row {
			if c.Valid {
				v := num(c.Decimal)
				cells[i] = &v
			}
		}
		out[year] = cells
	}
	return out
}

func toAssignmentDTO(a availability.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:      a.ID,
		RSE:     a.StaffID,
		Project: a.ProjectID,
		FTE:     num(a.FTE),
		Start:   datePtr(a.Start),
		End:     datePtr(a.End),
		Rate:    a.RateOrDefault(),
	}
}

func toCapacityDTO(c availability.CapacityOverride) CapacityDTO {
	return CapacityDTO{
		ID:       c.ID,
		RSE:      c.StaffID,
		Capacity: num(c.Capacity),
		Start:    calendar.Format(c.Start),
		End:      datePtr(c.End),
	}
}

func toTotalsDTO(t timesheet.Totals) TotalsDTO {
	return TotalsDTO{
		Capacity:    num(t.Capacity),
		Assigned:    num(t.Assigned),
		Leave:       num(t.Leave),
		Sickness:    num(t.Sickness),
		Available:   num(t.Available()),
		Recorded:    num(t.Recorded),
		Billable:    num(t.Billable),
		NonBillable: num(t.NonBillable),
		Volunteered: num(t.Volunteered),
		Utilisation: t.Utilisation().InexactFloat64(),
	}
}

func toStaffTotalsDTOs(staff []timesheet.StaffTotals) []StaffTotalsDTO {
	out := make([]StaffTotalsDTO, 0, len(staff))
	for _, s := range staff {
		out = append(out, StaffTotalsDTO{RSE: s.StaffID, Name: s.Name, Total: toTotalsDTO(s.Total)})
	}
	return out
}

func toSummaryDTO(s *timesheet.Summary) TimesheetSummaryDTO {
	days := make([]DayDTO, 0, len(s.Days))
	for _, d := range s.Days {
		days = append(days, DayDTO{
			Date:        calendar.Format(d.Date),
			RSE:         d.StaffID,
			NonWorking:  d.NonWorking,
			Capacity:    num(d.Capacity),
			Assigned:    num(d.Assigned),
			Leave:       num(d.Leave),
			Sickness:    num(d.Sickness),
			Recorded:    num(d.Recorded),
			Billable:    num(d.Billable),
			NonBillable: num(d.NonBillable),
			Volunteered: num(d.Volunteered),
		})
	}
	return TimesheetSummaryDTO{
		FinancialYear: calendar.FinancialYearLabel(s.FinancialYear),
		Start:         calendar.Format(s.Period.Start),
		End:           calendar.Format(s.Period.End),
		Days:          days,
		RSEs:          toStaffTotalsDTOs(s.Staff),
		Total:         toTotalsDTO(s.Total),
	}
}

func toUtilisationDTO(r *timesheet.UtilisationReport) UtilisationReportDTO {
	months := make([]MonthTotalsDTO, 0, len(r.Months))
	for _, m := range r.Months {
		months = append(months, MonthTotalsDTO{Month: m.Month.String(), Total: toTotalsDTO(m.Total)})
	}
	return UtilisationReportDTO{
		FinancialYear: calendar.FinancialYearLabel(r.FinancialYear),
		Start:         calendar.Format(r.Period.Start),
		End:           calendar.Format(r.Period.End),
		Months:        months,
		RSEs:          toStaffTotalsDTOs(r.RSEs),
		Total:         toTotalsDTO(r.Total),
	}
}

func toLeaveEntryDTOs(entries []leave.Entry) []LeaveEntryDTO {
	out := make([]LeaveEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaveEntryDTO{
			Date:     calendar.Format(e.Date),
			Duration: e.Duration.Days(),
			Type:     string(e.Kind),
		})
	}
	return out
}
