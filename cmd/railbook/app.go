package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"railbook/internal/calendar"
	"railbook/internal/civil"
	"railbook/internal/config"
	"railbook/internal/controller"
	"railbook/internal/countdown"
	"railbook/internal/holiday"
	"railbook/internal/ics"
	appLog "railbook/internal/log"
	"railbook/internal/offline"
	"railbook/internal/preference"
	"railbook/internal/share"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	cache    *offline.Cache
	holidays *holiday.Table
	prefs    preference.Store
	ctrl     *controller.Controller
}

// newApp wires config -> offline cache -> holidays -> preferences ->
// controller. now overrides the wall clock when non-nil.
func newApp(ctx context.Context, cfg *config.Config, now func() time.Time) (*app, error) {
	cache, err := offline.New(cfg.Offline.Dir, cfg.Offline.Version, cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("offline cache: %w", err)
	}

	holidays := holiday.Load(ctx, holiday.Source{URL: cfg.Holidays.URL, File: cfg.Holidays.File}, cache)

	prefs := preference.Open(ctx, preference.Options{
		Backend: cfg.Preference.Backend,
		File:    cfg.Preference.File,
		Redis: preference.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
	})

	rules := cfg.Rules()
	clock := civil.NewClock(now, cfg.TodayTTL())
	domain := "railbook.local"
	if u, err := url.Parse(cfg.SiteURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}

	ctrl := controller.New(controller.Deps{
		Clock:    clock,
		Rules:    rules,
		Renderer: calendar.New(rules, holidays, cfg.CalendarOptions()),
		Engine:   countdown.NewEngine(rules, nil),
		Ticker:   countdown.NewTicker(clock.Now),
		Composer: share.Composer{
			Rules:      rules,
			Product:    cfg.ProductName,
			BookingURL: cfg.BookingURL,
			SiteURL:    cfg.SiteURL,
		},
		Exporter: ics.NewExporter(domain),
		Prefs:    prefs,
	})

	return &app{
		cfg:      cfg,
		cache:    cache,
		holidays: holidays,
		prefs:    prefs,
		ctrl:     ctrl,
	}, nil
}

// Close stops the countdown, waits for background cache refreshes and
// releases the preference store.
func (a *app) Close() {
	a.ctrl.StopCountdown()
	a.cache.Wait()
	if err := a.prefs.Close(); err != nil {
		appLog.Error("failed to close preference store", err)
	}
}
