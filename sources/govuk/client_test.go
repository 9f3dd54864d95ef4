package govuk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources/govuk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `{
  "england-and-wales": {"division": "england-and-wales", "events": [
    {"title": "Christmas Day", "date": "2025-12-25", "notes": "", "bunting": true},
    {"title": "Boxing Day", "date": "2025-12-26", "notes": "", "bunting": true}
  ]},
  "scotland": {"division": "scotland", "events": [
    {"title": "St Andrew's Day", "date": "2025-12-01", "notes": "", "bunting": true}
  ]}
}`

func TestFetchBankHolidays_SelectsRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bank-holidays.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	c := govuk.NewClient(srv.URL, time.Second)
	hols, err := c.FetchBankHolidays(context.Background(), leave.RegionEnglandAndWales)

	require.NoError(t, err)
	require.Len(t, hols, 2)
	assert.Equal(t, calendar.NewDate(2025, time.December, 25), hols[0].Date)
	assert.Equal(t, "Boxing Day", hols[1].Name)
}

func TestFetchBankHolidays_UnknownRegion(t *testing.T) {
	c := govuk.NewClient("http://unused.invalid", time.Second)

	_, err := c.FetchBankHolidays(context.Background(), "wales-only")

	assert.Error(t, err)
	assert.False(t, sources.IsUpstream(err))
}

func TestFetchBankHolidays_ServerErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := govuk.NewClient(srv.URL, time.Second).FetchBankHolidays(context.Background(), leave.RegionEnglandAndWales)

	assert.True(t, sources.IsUpstream(err))
}

func TestFetchBankHolidays_MalformedDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"england-and-wales": {"events": [{"title": "Odd", "date": "25/12/2025"}]}}`))
	}))
	defer srv.Close()

	_, err := govuk.NewClient(srv.URL, time.Second).FetchBankHolidays(context.Background(), leave.RegionEnglandAndWales)

	assert.True(t, sources.IsUpstream(err))
}
