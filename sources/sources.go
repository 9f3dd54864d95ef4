/*
Package sources holds what the external-system adapters share: the
upstream error type, a bounded HTTP client and an iterative page loop.

SUBPACKAGES:
  govuk:     published bank holidays (leave.HolidaySource)
  clockify:  time-tracker reports (timesheet.TimeEntrySource)
  leavebook: HR leave spreadsheets (leave.LeaveSource)
  cache:     read-through TTL caches in front of the above
*/
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrUpstream matches every *UpstreamError with errors.Is.
var ErrUpstream = errors.New("upstream fetch failed")

// UpstreamError reports an external system that could not be reached or
// answered with a non-2xx status.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s: status=%d, body=%s", e.Service, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// IsUpstream reports whether err came from an external system.
func IsUpstream(err error) bool { return errors.Is(err, ErrUpstream) }

// =============================================================================
// HTTP
// =============================================================================

// NewHTTPClient returns a client with an overall request timeout and
// bounded dial and TLS handshakes.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Do sends req and turns transport failures and non-2xx answers into
// *UpstreamError. The caller closes the body of a successful response.
func Do(client *http.Client, service string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: service, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Service: service, Status: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}

// =============================================================================
// PAGINATION
// =============================================================================

// MaxPages bounds Paginate against a server that never stops paging.
const MaxPages = 1000

// PageFunc fetches one page, numbered from 1, and reports whether another
// page follows.
type PageFunc[T any] func(ctx context.Context, page int) (items []T, more bool, err error)

// Paginate calls fetch for page 1, 2, ... until it reports no more pages,
// collecting every item.
func Paginate[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var all []T
	for page := 1; page <= MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, more, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, items...)
		if !more {
			return all, nil
		}
	}
	return nil, fmt.Errorf("pagination exceeded %d pages", MaxPages)
}
