/*
Package clockify reads recorded time from the Clockify reports API.

KEY CONCEPTS:
  - Detailed report: one row per time entry, paged with detailedFilter.
  - Summary report: durations grouped by user then day. Recorded and
    billable time come from two requests, the second filtered to billable.
  - Durations arrive in seconds and are converted to hours.
  - Tracker user IDs are used as staff IDs unchanged.
*/
package clockify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

const (
	DefaultBaseURL  = "https://reports.api.clockify.me"
	DefaultPageSize = 1000
	service         = "clockify"
	rangeLayout     = "2006-01-02T15:04:05.000Z"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Config configures a Client. APIKey and Workspace are required; the rest
// default when zero.
type Config struct {
	BaseURL   string
	APIKey    string
	Workspace string
	PageSize  int
	Timeout   time.Duration
	// Location decides which calendar day an entry belongs to.
	Location *time.Location
}

// Client reads the time tracker's report API.
type Client struct {
	baseURL   string
	apiKey    string
	workspace string
	pageSize  int
	loc       *time.Location
	http      *http.Client
}

// NewClient validates cfg and fills in defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("clockify: api key is required")
	}
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("clockify: workspace is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		workspace: cfg.Workspace,
		pageSize:  cfg.PageSize,
		loc:       cfg.Location,
		http:      sources.NewHTTPClient(cfg.Timeout),
	}, nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type userFilter struct {
	IDs      []string `json:"ids"`
	Contains string   `json:"contains"`
	Status   string   `json:"status"`
}

type detailedFilter struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type summaryFilter struct {
	Groups []string `json:"groups"`
}

type reportRequest struct {
	DateRangeStart string          `json:"dateRangeStart"`
	DateRangeEnd   string          `json:"dateRangeEnd"`
	ExportType     string          `json:"exportType"`
	Billable       *bool           `json:"billable,omitempty"`
	Users          *userFilter     `json:"users,omitempty"`
	DetailedFilter *detailedFilter `json:"detailedFilter,omitempty"`
	SummaryFilter  *summaryFilter  `json:"summaryFilter,omitempty"`
}

type timeInterval struct {
	Start    time.Time `json:"start"`
	Duration int64     `json:"duration"`
}

type timeEntry struct {
	ID           string       `json:"_id"`
	UserID       string       `json:"userId"`
	Billable     bool         `json:"billable"`
	ProjectName  string       `json:"projectName"`
	TimeInterval timeInterval `json:"timeInterval"`
}

type detailedReport struct {
	TimeEntries []timeEntry `json:"timeentries"`
}

type summaryGroup struct {
	ID       string         `json:"_id"`
	Name     string         `json:"name"`
	Duration int64          `json:"duration"`
	Children []summaryGroup `json:"children"`
}

type summaryReport struct {
	GroupOne []summaryGroup `json:"groupOne"`
}

// =============================================================================
// DETAILED
// =============================================================================

// FetchTimeEntries returns every entry a user recorded within period.
func (c *Client) FetchTimeEntries(ctx context.Context, staffID string, period calendar.Period) ([]timesheet.TimeEntry, error) {
	base := c.rangeRequest(period)
	base.Users = &userFilter{IDs: []string{staffID}, Contains: "CONTAINS", Status: "ALL"}

	raw, err := sources.Paginate(ctx, func(ctx context.Context, page int) ([]timeEntry, bool, error) {
		req := base
		req.DetailedFilter = &detailedFilter{Page: page, PageSize: c.pageSize}
		var report detailedReport
		if err := c.post(ctx, "/reports/detailed", req, &report); err != nil {
			return nil, false, err
		}
		return report.TimeEntries, len(report.TimeEntries) == c.pageSize, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]timesheet.TimeEntry, 0, len(raw))
	for _, e := range raw {
		out = append(out, timesheet.TimeEntry{
			StaffID:  e.UserID,
			Date:     c.day(e.TimeInterval.Start),
			Hours:    toHours(e.TimeInterval.Duration),
			Billable: e.Billable,
			Project:  e.ProjectName,
		})
	}
	return out, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// FetchTimeSummary returns recorded and billable hours per user per day.
func (c *Client) FetchTimeSummary(ctx context.Context, period calendar.Period) ([]timesheet.SummaryRow, error) {
	recorded, err := c.summary(ctx, period, false)
	if err != nil {
		return nil, err
	}
	billable, err := c.summary(ctx, period, true)
	if err != nil {
		return nil, err
	}

	type key struct {
		staff string
		day   time.Time
	}
	var order []key
	rows := make(map[key]*timesheet.SummaryRow)
	get := func(k key) *timesheet.SummaryRow {
		r, ok := rows[k]
		if !ok {
			r = &timesheet.SummaryRow{StaffID: k.staff, Date: k.day}
			rows[k] = r
			order = append(order, k)
		}
		return r
	}

	add := func(groups []summaryGroup, apply func(*timesheet.SummaryRow, decimal.Decimal)) error {
		for _, user := range groups {
			for _, day := range user.Children {
				d, err := calendar.Parse(day.ID)
				if err != nil {
					return &sources.UpstreamError{Service: service, Err: fmt.Errorf("summary day %q: %w", day.ID, err)}
				}
				apply(get(key{user.ID, d}), toHours(day.Duration))
			}
		}
		return nil
	}
	if err := add(recorded, func(r *timesheet.SummaryRow, h decimal.Decimal) { r.Recorded = r.Recorded.Add(h) }); err != nil {
		return nil, err
	}
	if err := add(billable, func(r *timesheet.SummaryRow, h decimal.Decimal) { r.Billable = r.Billable.Add(h) }); err != nil {
		return nil, err
	}

	out := make([]timesheet.SummaryRow, 0, len(order))
	for _, k := range order {
		out = append(out, *rows[k])
	}
	return out, nil
}

func (c *Client) summary(ctx context.Context, period calendar.Period, billableOnly bool) ([]summaryGroup, error) {
	req := c.rangeRequest(period)
	req.SummaryFilter = &summaryFilter{Groups: []string{"USER", "DATE"}}
	if billableOnly {
		t := true
		req.Billable = &t
	}
	var report summaryReport
	if err := c.post(ctx, "/reports/summary", req, &report); err != nil {
		return nil, err
	}
	return report.GroupOne, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) rangeRequest(period calendar.Period) reportRequest {
	start := time.Date(period.Start.Year(), period.Start.Month(), period.Start.Day(), 0, 0, 0, 0, c.loc)
	end := time.Date(period.End.Year(), period.End.Month(), period.End.Day(), 23, 59, 59, 999e6, c.loc)
	return reportRequest{
		DateRangeStart: start.UTC().Format(rangeLayout),
		DateRangeEnd:   end.UTC().Format(rangeLayout),
		ExportType:     "JSON",
	}
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/v1/workspaces/%s%s", c.baseURL, c.workspace, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := sources.Do(c.http, service, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &sources.UpstreamError{Service: service, Status: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}

func (c *Client) day(t time.Time) time.Time {
	return calendar.DateOnly(t.In(c.loc))
}

func toHours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour).Round(4)
}
