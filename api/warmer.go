/*
warmer.go - Background cache refresh

PURPOSE:
  Periodically drops the source caches and refills the ones every request
  needs: bank holidays for the current financial year and leave records
  for the current leave year. Requests then rarely wait on an upstream.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on Start
  - Upstream failures are logged by the leave calculator and retried on
    the next tick

USAGE:
  warmer := NewCacheWarmer(leaveCalc, clock, logger, holidayCache, leaveCache)
  warmer.Start()
  // ... later
  warmer.Stop()

SEE ALSO:
  - sources/cache: the caches being refreshed
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/calendar"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
)

// Purger is a cache that can be emptied.
type Purger interface {
	Purge()
}

// CacheWarmer refreshes source caches on an interval.
type CacheWarmer struct {
	Leave    *leave.Calculator
	Caches   []Purger
	Clock    calendar.Clock
	Logger   *slog.Logger
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCacheWarmer creates a warmer with a 30 minute interval.
func NewCacheWarmer(leaveCalc *leave.Calculator, clock calendar.Clock, logger *slog.Logger, caches ...Purger) *CacheWarmer {
	if clock == nil {
		clock = calendar.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheWarmer{
		Leave:    leaveCalc,
		Caches:   caches,
		Clock:    clock,
		Logger:   logger,
		Interval: 30 * time.Minute,
		Enabled:  true,
	}
}

// Start begins the refresh loop.
func (cw *CacheWarmer) Start() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.Enabled {
		cw.Logger.Info("cache warmer disabled, not starting")
		return
	}
	if cw.ticker != nil {
		return
	}

	cw.ticker = time.NewTicker(cw.Interval)
	cw.stop = make(chan struct{})
	cw.wg.Add(1)

	go cw.run()

	cw.Logger.Info("cache warmer started", "interval", cw.Interval)
}

// Stop stops the refresh loop and waits for an in-flight refresh.
func (cw *CacheWarmer) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.ticker != nil {
		cw.ticker.Stop()
		close(cw.stop)
		cw.wg.Wait()
		cw.ticker = nil
		cw.Logger.Info("cache warmer stopped")
	}
}

func (cw *CacheWarmer) run() {
	defer cw.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-cw.stop
		cancel()
	}()

	cw.refresh(ctx)

	for {
		select {
		case <-cw.ticker.C:
			cw.refresh(ctx)
		case <-cw.stop:
			return
		}
	}
}

// RunNow performs one refresh synchronously.
func (cw *CacheWarmer) RunNow(ctx context.Context) {
	cw.refresh(ctx)
}

func (cw *CacheWarmer) refresh(ctx context.Context) {
	started := time.Now()
	for _, c := range cw.Caches {
		c.Purge()
	}

	today := calendar.Today(cw.Clock)
	fy := calendar.FinancialYearPeriod(calendar.FinancialYearAt(today))
	ly := calendar.LeaveYearPeriod(calendar.LeaveYearAt(today))

	closed := cw.Leave.NonWorkingDays(ctx, fy.Start, fy.End)
	entries := cw.Leave.LeaveEntries(ctx, "", ly.Start, ly.End)

	cw.Logger.Info("caches refreshed",
		"closed_days", len(closed),
		"leave_entries", len(entries),
		"took", time.Since(started))
}
