package main

import (
	"fmt"
	"log/slog"

	"github.com/NewcastleRSE/rse-admin-strapi-sub000/api"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/availability"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/config"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/leave"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/logger"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources/cache"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources/clockify"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources/govuk"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/sources/leavebook"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/store/sqlite"
	"github.com/NewcastleRSE/rse-admin-strapi-sub000/timesheet"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *sqlite.Store
	calc   *leave.Calculator
	agg    *timesheet.Aggregator
	engine *availability.Engine
	caches []api.Purger
}

func loadApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger.Init(cfg.Log))
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	holidays := cache.NewHolidays(govuk.NewClient(cfg.Holidays.BaseURL, cfg.Holidays.Timeout), cfg.Cache.HolidayTTL)
	leaves := cache.NewLeave(leavebook.New(cfg.Leave.Dir), cfg.Cache.LeaveTTL)

	calc := leave.NewCalculator(leaves, holidays, log)
	if cfg.Holidays.Region != "" {
		calc.Region = cfg.Holidays.Region
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		calc:   calc,
		engine: availability.NewEngine(nil),
		caches: []api.Purger{holidays, leaves},
	}

	if !cfg.TrackerEnabled() {
		log.Warn("time tracker credentials missing, timesheet endpoints disabled")
		return a, nil
	}

	tracker, err := clockify.NewClient(clockify.Config{
		BaseURL:   cfg.Clockify.BaseURL,
		APIKey:    cfg.Clockify.APIKey,
		Workspace: cfg.Clockify.Workspace,
		PageSize:  cfg.Clockify.PageSize,
		Timeout:   cfg.Clockify.Timeout,
		Location:  cfg.TimeLocation(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	entries := cache.NewTimeEntries(tracker, cfg.Cache.TimeTTL)
	a.caches = append(a.caches, entries)

	a.agg = timesheet.NewAggregator(timesheet.Config{
		Staff:       store,
		Assignments: store,
		Capacities:  store,
		Time:        entries,
		Leave:       calc,
		Engine:      a.engine,
		Logger:      log,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
