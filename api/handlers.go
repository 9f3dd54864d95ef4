/*
handlers.go - HTTP API handlers for RSE availability and timesheets

PURPOSE:
  Exposes the availability engine, leave calculator and timesheet
  aggregator via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  RSEs:
    GET    /api/rses                    List RSEs with next availability
    POST   /api/rses                    Create RSE
    GET    /api/rses/{id}               Get RSE
    DELETE /api/rses/{id}               Delete RSE (cascades)
    GET    /api/rses/{id}/availability  Capacity and available grids

  Assignments / Capacities:
    GET    /api/assignments?rse=&project=
    POST   /api/assignments
    POST   /api/assignments/plan        Replace project runs from a monthly plan
    DELETE /api/assignments/{id}
    GET    /api/capacities?rse=
    POST   /api/capacities
    DELETE /api/capacities/{id}

  Timesheets:
    GET    /api/timesheets/summary?rse=&year=
    GET    /api/timesheets/utilisation?year=

  Leave / Calendar:
    GET    /api/leave/{rse}?start=&end=
    GET    /api/calendar/closures?start=&end=
    GET    /api/calendar/financial-year?date=

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 502: An external system failed
  - 503: Time tracker not configured
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/store/sqlite"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *availability.Engine
	Leave  *leave.Calculator
	// Aggregator is nil when no time tracker is configured.
	Aggregator *timesheet.Aggregator
	Clock      calendar.Clock
	Logger     *slog.Logger
	NewID      func() string
}

// NewHandler creates a new handler. A nil clock reads the wall clock.
func NewHandler(store *sqlite.Store, leaveCalc *leave.Calculator, agg *timesheet.Aggregator, clock calendar.Clock, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = calendar.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:      store,
		Engine:     availability.NewEngine(clock),
		Leave:      leaveCalc,
		Aggregator: agg,
		Clock:      clock,
		Logger:     logger,
		NewID:      uuid.NewString,
	}
}

var errTrackerDisabled = errors.New("time tracker is not configured")

// =============================================================================
// RSE HANDLERS
// =============================================================================

// ListRSEs returns every RSE with their next available month this year.
func (h *Handler) ListRSEs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	staff, err := h.Store.ListStaff(ctx)
	if err != nil {
		h.fail(w, "Failed to list RSEs", err)
		return
	}

	dtos := make([]RSEDTO, 0, len(staff))
	for _, s := range staff {
		dto, err := h.rseWithAvailability(r, s)
		if err != nil {
			h.fail(w, "Failed to compute availability", err)
			return
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetRSE returns one RSE.
func (h *Handler) GetRSE(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadStaff(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	dto, err := h.rseWithAvailability(r, *s)
	if err != nil {
		h.fail(w, "Failed to compute availability", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateRSE creates or updates an RSE.
func (h *Handler) CreateRSE(w http.ResponseWriter, r *http.Request) {
	var req CreateRSERequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	start, err := calendar.Parse(req.ContractStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contractStart", err)
		return
	}
	end, err := parseOptionalDate(req.ContractEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contractEnd", err)
		return
	}

	s := availability.Staff{
		ID:            req.ID,
		Name:          req.Name,
		Email:         req.Email,
		ContractStart: start,
		ContractEnd:   end,
	}
	if s.ID == "" {
		s.ID = h.NewID()
	}
	if err := s.Validate(); err != nil {
		h.fail(w, "Invalid RSE", err)
		return
	}

	if err := h.Store.SaveStaff(r.Context(), s); err != nil {
		h.fail(w, "Failed to save RSE", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRSEDTO(s))
}

// DeleteRSE removes an RSE with their assignments and capacities.
func (h *Handler) DeleteRSE(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.loadStaff(w, r, id); !ok {
		return
	}
	if err := h.Store.DeleteStaff(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete RSE", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAvailability returns the capacity and available grids for an RSE.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadStaff(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	res, err := h.compute(r, *s)
	if err != nil {
		h.fail(w, "Failed to compute availability", err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityDTO{
		RSE:       s.ID,
		Capacity:  toGridDTO(res.Capacity),
		Available: toGridDTO(res.Available),
	})
}

func (h *Handler) compute(r *http.Request, s availability.Staff) (availability.Result, error) {
	ctx := r.Context()
	as, err := h.Store.ListAssignments(ctx, timesheet.AssignmentFilter{StaffID: s.ID})
	if err != nil {
		return availability.Result{}, err
	}
	cs, err := h.Store.ListCapacities(ctx, timesheet.CapacityFilter{StaffID: s.ID})
	if err != nil {
		return availability.Result{}, err
	}
	return h.Engine.Compute(s, as, cs), nil
}

func (h *Handler) rseWithAvailability(r *http.Request, s availability.Staff) (RSEDTO, error) {
	dto := toRSEDTO(s)

	res, err := h.compute(r, s)
	if err != nil {
		return dto, err
	}
	next, err := availability.NextAvailable(res.Available, calendar.Today(h.Clock))
	if errors.Is(err, availability.ErrNotFound) {
		return dto, nil
	}
	if err != nil {
		return dto, err
	}

	date := calendar.Format(next.Date)
	fte := num(next.FTE)
	dto.NextAvailableDate = &date
	dto.NextAvailableFTE = &fte
	return dto, nil
}

func (h *Handler) loadStaff(w http.ResponseWriter, r *http.Request, id string) (*availability.Staff, bool) {
	s, err := h.Store.GetStaff(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to load RSE", err)
		return nil, false
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "RSE not found", nil)
		return nil, false
	}
	return s, true
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// ListAssignments returns assignments, optionally filtered by rse and project.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	as, err := h.Store.ListAssignments(r.Context(), timesheet.AssignmentFilter{
		StaffID:   q.Get("rse"),
		ProjectID: q.Get("project"),
	})
	if err != nil {
		h.fail(w, "Failed to list assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, 0, len(as))
	for _, a := range as {
		dtos = append(dtos, toAssignmentDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAssignment commits an RSE to a project.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Project == "" {
		writeError(w, http.StatusBadRequest, "project is required", nil)
		return
	}
	if _, ok := h.loadStaff(w, r, req.RSE); !ok {
		return
	}

	start, err := calendar.Parse(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := calendar.Parse(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}

	a := availability.Assignment{
		ID:        h.NewID(),
		StaffID:   req.RSE,
		ProjectID: req.Project,
		FTE:       decimal.NewFromFloat(req.FTE),
		Start:     &start,
		End:       &end,
		Rate:      req.Rate,
	}
	if err := a.Validate(); err != nil {
		h.fail(w, "Invalid assignment", err)
		return
	}

	if err := h.Store.SaveAssignment(r.Context(), a); err != nil {
		h.fail(w, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(a))
}

// PlanAssignments replaces an RSE's assignments to one project with runs
// built from a month-by-month FTE plan.
func (h *Handler) PlanAssignments(w http.ResponseWriter, r *http.Request) {
	var req PlanAssignmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Project == "" {
		writeError(w, http.StatusBadRequest, "project is required", nil)
		return
	}
	if _, ok := h.loadStaff(w, r, req.RSE); !ok {
		return
	}

	plan := make([]availability.MonthlyFTE, 0, len(req.Months))
	for _, m := range req.Months {
		ym, err := calendar.ParseYearMonth(m.Month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month", err)
			return
		}
		plan = append(plan, availability.MonthlyFTE{Month: ym, FTE: decimal.NewFromFloat(m.FTE)})
	}

	runs := availability.MergeMonthlyRuns(req.RSE, req.Project, req.Rate, plan)
	for i := range runs {
		runs[i].ID = h.NewID()
	}

	if err := h.Store.ReplaceAssignments(r.Context(), req.RSE, req.Project, runs); err != nil {
		h.fail(w, "Failed to save assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, 0, len(runs))
	for _, a := range runs {
		dtos = append(dtos, toAssignmentDTO(a))
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// DeleteAssignment removes an assignment.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CAPACITY HANDLERS
// =============================================================================

// ListCapacities returns capacity overrides ordered by start date.
func (h *Handler) ListCapacities(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Store.ListCapacities(r.Context(), timesheet.CapacityFilter{StaffID: r.URL.Query().Get("rse")})
	if err != nil {
		h.fail(w, "Failed to list capacities", err)
		return
	}

	dtos := make([]CapacityDTO, 0, len(cs))
	for _, c := range cs {
		dtos = append(dtos, toCapacityDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCapacity records a capacity override.
func (h *Handler) CreateCapacity(w http.ResponseWriter, r *http.Request) {
	var req CreateCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := h.loadStaff(w, r, req.RSE); !ok {
		return
	}

	start, err := calendar.Parse(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end, err := parseOptionalDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end", err)
		return
	}

	c := availability.CapacityOverride{
		ID:       h.NewID(),
		StaffID:  req.RSE,
		Capacity: decimal.NewFromFloat(req.Capacity),
		Start:    start,
		End:      end,
	}
	if err := c.Validate(); err != nil {
		h.fail(w, "Invalid capacity", err)
		return
	}

	if err := h.Store.SaveCapacity(r.Context(), c); err != nil {
		h.fail(w, "Failed to save capacity", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCapacityDTO(c))
}

// DeleteCapacity removes a capacity override.
func (h *Handler) DeleteCapacity(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCapacity(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete capacity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// GetTimesheetSummary classifies every day of a financial year for one RSE,
// or all RSEs when rse is empty.
func (h *Handler) GetTimesheetSummary(w http.ResponseWriter, r *http.Request) {
	if h.Aggregator == nil {
		writeError(w, http.StatusServiceUnavailable, "Timesheets unavailable", errTrackerDisabled)
		return
	}
	year, ok := h.financialYearParam(w, r)
	if !ok {
		return
	}

	summary, err := h.Aggregator.BuildTimesheetSummary(r.Context(), r.URL.Query().Get("rse"), year)
	if err != nil {
		h.fail(w, "Failed to build timesheet summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// GetUtilisation returns the monthly and per-RSE utilisation report.
func (h *Handler) GetUtilisation(w http.ResponseWriter, r *http.Request) {
	if h.Aggregator == nil {
		writeError(w, http.StatusServiceUnavailable, "Timesheets unavailable", errTrackerDisabled)
		return
	}
	year, ok := h.financialYearParam(w, r)
	if !ok {
		return
	}

	report, err := h.Aggregator.BuildUtilisationReport(r.Context(), year)
	if err != nil {
		h.fail(w, "Failed to build utilisation report", err)
		return
	}
	writeJSON(w, http.StatusOK, toUtilisationDTO(report))
}

func (h *Handler) financialYearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return calendar.FinancialYearAt(calendar.Today(h.Clock)), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, false
	}
	return year, true
}

// =============================================================================
// LEAVE & CALENDAR HANDLERS
// =============================================================================

// GetLeave returns booked leave for an RSE. The range defaults to the
// current leave year.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "rse")
	period := calendar.LeaveYearPeriod(calendar.LeaveYearAt(calendar.Today(h.Clock)))
	period, ok := rangeParams(w, r, period)
	if !ok {
		return
	}

	ctx := r.Context()
	writeJSON(w, http.StatusOK, LeaveDTO{
		RSE:     staffID,
		Start:   calendar.Format(period.Start),
		End:     calendar.Format(period.End),
		Days:    num(h.Leave.LeaveDaysFor(ctx, staffID, period.Start, period.End)),
		Entries: toLeaveEntryDTOs(h.Leave.LeaveEntries(ctx, staffID, period.Start, period.End)),
	})
}

// GetClosures counts bank holidays and university closure days in a range.
func (h *Handler) GetClosures(w http.ResponseWriter, r *http.Request) {
	period, ok := rangeParams(w, r, calendar.Period{})
	if !ok {
		return
	}

	ctx := r.Context()
	count := h.Leave.CountClosures(ctx, period.Start, period.End)
	days := make(map[string]string)
	for d, name := range h.Leave.NonWorkingDays(ctx, period.Start, period.End) {
		days[calendar.Format(d)] = name
	}

	writeJSON(w, http.StatusOK, ClosuresDTO{
		Start:        calendar.Format(period.Start),
		End:          calendar.Format(period.End),
		BankHolidays: count.BankHolidays,
		Closures:     count.Closures,
		Total:        count.Total(),
		Days:         days,
	})
}

// GetFinancialYear returns the financial year containing date (default today).
func (h *Handler) GetFinancialYear(w http.ResponseWriter, r *http.Request) {
	at := calendar.Today(h.Clock)
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := calendar.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		at = d
	}

	year := calendar.FinancialYearAt(at)
	period := calendar.FinancialYearPeriod(year)
	writeJSON(w, http.StatusOK, FinancialYearDTO{
		Year:  year,
		Label: calendar.FinancialYearLabel(year),
		Start: calendar.Format(period.Start),
		End:   calendar.Format(period.End),
	})
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// rangeParams reads start and end, falling back to def. Both are required
// when def is the zero period.
func rangeParams(w http.ResponseWriter, r *http.Request, def calendar.Period) (calendar.Period, bool) {
	q := r.URL.Query()
	p := def

	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"start", &p.Start}, {"end", &p.End}} {
		raw := q.Get(f.name)
		if raw == "" {
			if f.dst.IsZero() {
				writeError(w, http.StatusBadRequest, f.name+" is required", nil)
				return p, false
			}
			continue
		}
		d, err := calendar.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+f.name, err)
			return p, false
		}
		*f.dst = d
	}

	if !p.Valid() {
		writeError(w, http.StatusBadRequest, "end is before start", nil)
		return p, false
	}
	return p, true
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := calendar.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case availability.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, timesheet.ErrStaffNotFound):
		return http.StatusNotFound
	case sources.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.Logger.Error(message, "status", status, "error", err)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
