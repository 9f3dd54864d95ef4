// Package govuk reads the published UK bank-holiday calendar.
package govuk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources"
)

const (
	DefaultBaseURL = "https://www.gov.uk"
	service        = "govuk"
)

// Divisions published by the feed.
var divisions = map[string]bool{
	leave.RegionEnglandAndWales: true,
	"scotland":                  true,
	"northern-ireland":          true,
}

// Client fetches the published bank-holiday feed.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client; an empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    sources.NewHTTPClient(timeout),
	}
}

type feedEvent struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type feedDivision struct {
	Division string      `json:"division"`
	Events   []feedEvent `json:"events"`
}

// FetchBankHolidays returns every published holiday for region.
func (c *Client) FetchBankHolidays(ctx context.Context, region string) ([]leave.Holiday, error) {
	if !divisions[region] {
		return nil, fmt.Errorf("unknown bank holiday region %q", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bank-holidays.json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := sources.Do(c.http, service, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed map[string]feedDivision
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, &sources.UpstreamError{Service: service, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}

	div, ok := feed[region]
	if !ok {
		return nil, &sources.UpstreamError{Service: service, Status: resp.StatusCode, Err: fmt.Errorf("region %q missing from feed", region)}
	}

	out := make([]leave.Holiday, 0, len(div.Events))
	for _, ev := range div.Events {
		d, err := calendar.Parse(ev.Date)
		if err != nil {
			return nil, &sources.UpstreamError{Service: service, Status: resp.StatusCode, Err: fmt.Errorf("event %q: %w", ev.Title, err)}
		}
		out = append(out, leave.Holiday{Date: d, Name: ev.Title})
	}
	return out, nil
}
