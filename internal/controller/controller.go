// Package controller owns the process-wide state: the today cache, the
// selected travel date per visitor, the countdown ticker and its latest
// snapshot. All mutation goes through Dispatch or the countdown methods.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"railbook/internal/booking"
	"railbook/internal/calendar"
	"railbook/internal/civil"
	"railbook/internal/countdown"
	"railbook/internal/ics"
	appLog "railbook/internal/log"
	"railbook/internal/model"
	"railbook/internal/preference"
	"railbook/internal/share"
)

var (
	ErrNoSelection    = errors.New("no travel date selected")
	ErrNotSelectable  = errors.New("travel date is not selectable")
	ErrNotExportable  = errors.New("booking for this date is not in the future")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMissingVisitor = errors.New("visitor id is required")
)

const (
	// DefaultSelectionTTL is how long a visitor's selected date is kept.
	DefaultSelectionTTL = 24 * time.Hour
	// DefaultMaxSelections caps the number of visitors with a selection.
	DefaultMaxSelections = 10000
)

// EventKind names a user interaction.
type EventKind string

const (
	EventSelect      EventKind = "select"
	EventCopy        EventKind = "copy"
	EventShare       EventKind = "share"
	EventWhatsApp    EventKind = "whatsapp"
	EventExport      EventKind = "export"
	EventToggleTheme EventKind = "toggle-theme"
	EventOpenPicker  EventKind = "open-picker"
)

// Event is one interaction. Date is used by select only.
type Event struct {
	Kind    EventKind `json:"kind"`
	Visitor string    `json:"-"`
	Date    string    `json:"date,omitempty"`
}

// Result carries whatever the handler produced.
type Result struct {
	Kind EventKind `json:"kind"`

	Message  *booking.Message `json:"message,omitempty"`
	Travel   string           `json:"travel,omitempty"`
	Share    *share.Payload   `json:"share,omitempty"`
	Text     string           `json:"text,omitempty"`
	Link     string           `json:"link,omitempty"`
	ICS      string           `json:"ics,omitempty"`
	FileName string           `json:"file_name,omitempty"`
	Theme    preference.Theme `json:"theme,omitempty"`
	Picker   *model.Calendar  `json:"picker,omitempty"`
	Toast    *share.Toast     `json:"toast,omitempty"`
}

type handler func(ctx context.Context, ev Event) (Result, error)

// Deps are the collaborators a Controller drives.
type Deps struct {
	Clock    *civil.Clock
	Rules    booking.Rules
	Renderer *calendar.Renderer
	Engine   *countdown.Engine
	Ticker   *countdown.Ticker
	Composer share.Composer
	Exporter *ics.Exporter
	Prefs    preference.Store

	// SelectionTTL and MaxSelections bound the per-visitor selections.
	SelectionTTL  time.Duration
	MaxSelections int
}

// selectedDate is a visitor's chosen travel date and when it was chosen.
type selectedDate struct {
	date civil.Date
	at   time.Time
}

// Controller is safe for concurrent use.
type Controller struct {
	clock    *civil.Clock
	rules    booking.Rules
	renderer *calendar.Renderer
	engine   *countdown.Engine
	ticker   *countdown.Ticker
	composer share.Composer
	exporter *ics.Exporter
	prefs    preference.Store

	handlers map[EventKind]handler

	selectionTTL  time.Duration
	maxSelections int

	mu       sync.RWMutex
	selected map[string]selectedDate
	snapshot countdown.Snapshot
	ticked   bool
	onTick   []func(countdown.Snapshot)
}

// New wires a controller; nil collaborators get defaults.
func New(d Deps) *Controller {
	if d.Clock == nil {
		d.Clock = civil.NewClock(nil, 0)
	}
	if d.Renderer == nil {
		d.Renderer = calendar.New(d.Rules, nil, calendar.Options{})
	}
	if d.Engine == nil {
		d.Engine = countdown.NewEngine(d.Rules, nil)
	}
	if d.Ticker == nil {
		d.Ticker = countdown.NewTicker(nil)
	}
	if d.Exporter == nil {
		d.Exporter = ics.NewExporter("")
	}
	if d.Prefs == nil {
		d.Prefs = preference.NewMemoryStore()
	}
	if d.SelectionTTL <= 0 {
		d.SelectionTTL = DefaultSelectionTTL
	}
	if d.MaxSelections <= 0 {
		d.MaxSelections = DefaultMaxSelections
	}
	if d.Composer.Rules == (booking.Rules{}) {
		d.Composer.Rules = d.Rules
	}

	c := &Controller{
		clock:    d.Clock,
		rules:    d.Rules,
		renderer: d.Renderer,
		engine:   d.Engine,
		ticker:   d.Ticker,
		composer: d.Composer,
		exporter: d.Exporter,
		prefs:    d.Prefs,

		selectionTTL:  d.SelectionTTL,
		maxSelections: d.MaxSelections,
		selected:      make(map[string]selectedDate),
	}
	c.handlers = map[EventKind]handler{
		EventSelect:      c.handleSelect,
		EventCopy:        c.handleCopy,
		EventShare:       c.handleShare,
		EventWhatsApp:    c.handleWhatsApp,
		EventExport:      c.handleExport,
		EventToggleTheme: c.handleToggleTheme,
		EventOpenPicker:  c.handleOpenPicker,
	}
	return c
}

// Dispatch routes ev to its handler.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (Result, error) {
	h, ok := c.handlers[ev.Kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	res, err := h(ctx, ev)
	if err != nil {
		appLog.Debug("controller: event failed", "kind", ev.Kind, "err", err)
		return Result{Kind: ev.Kind}, err
	}
	res.Kind = ev.Kind
	return res, nil
}

func (c *Controller) Today() civil.Date { return c.clock.Today() }
func (c *Controller) Now() time.Time    { return c.clock.Now() }
func (c *Controller) Rules() booking.Rules {
	return c.rules
}

// Selected returns the visitor's current travel date. Selections older than
// the TTL are reported as absent.
func (c *Controller) Selected(visitor string) (civil.Date, bool) {
	now := c.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	sel, ok := c.selected[visitor]
	if !ok || c.expired(sel, now) {
		return civil.Date{}, false
	}
	return sel.date, true
}

// Selections returns the number of selections currently held.
func (c *Controller) Selections() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.selected)
}

func (c *Controller) expired(sel selectedDate, now time.Time) bool {
	return now.Sub(sel.at) >= c.selectionTTL
}

// remember stores d for visitor. Expired entries are dropped on every write;
// when the map is still full the oldest selection is evicted. c.mu must be
// held.
func (c *Controller) remember(visitor string, d civil.Date, now time.Time) {
	for v, sel := range c.selected {
		if c.expired(sel, now) {
			delete(c.selected, v)
		}
	}
	if _, ok := c.selected[visitor]; !ok && len(c.selected) >= c.maxSelections {
		var oldest string
		var at time.Time
		for v, sel := range c.selected {
			if oldest == "" || sel.at.Before(at) {
				oldest, at = v, sel.at
			}
		}
		delete(c.selected, oldest)
		appLog.Debug("controller: evicted selection", "visitor", oldest)
	}
	c.selected[visitor] = selectedDate{date: d, at: now}
}

// Overview renders the overview calendar for today.
func (c *Controller) Overview() model.Calendar {
	return c.renderer.Overview(c.Today())
}

// Picker renders the date picker for today.
func (c *Controller) Picker() model.Calendar {
	return c.renderer.Picker(c.Today())
}

// Popup computes the information box for d.
func (c *Controller) Popup(d civil.Date) model.Popup {
	return c.renderer.Popup(d, c.Today())
}

// Booking is the verdict for travel at the current instant.
func (c *Controller) Booking(travel civil.Date) booking.Message {
	return c.rules.Message(travel, c.Now())
}

// Share composes the share payload for travel.
func (c *Controller) Share(travel civil.Date) share.Payload {
	return c.composer.Compose(travel, c.Now())
}

// Summary is the booking-horizon headline for today.
func (c *Controller) Summary() string {
	return c.rules.Summary(c.Today())
}

// Reminder serializes the .ics reminder for travel. Only dates whose booking
// opens in the future can be exported.
func (c *Controller) Reminder(travel civil.Date) (string, error) {
	if !c.Booking(travel).CanExport {
		return "", ErrNotExportable
	}
	rem := ics.NewReminder(c.rules, travel, c.composer.Product, c.composer.BookingURL)
	return c.exporter.Serialize(rem), nil
}

// Selectable reports whether d is an enabled picker cell today.
func (c *Controller) Selectable(d civil.Date) bool {
	today := c.Today()
	return !d.Before(today) && !d.After(today.AddDays(c.renderer.Options.PickerDays))
}

// OnTick registers fn to receive every countdown snapshot.
func (c *Controller) OnTick(fn func(countdown.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = append(c.onTick, fn)
}

// StartCountdown (re)starts the one-second countdown timer. Calling it again
// replaces the running timer.
func (c *Controller) StartCountdown() error {
	return c.ticker.Start(c.tick)
}

// StopCountdown stops the timer; safe to call repeatedly.
func (c *Controller) StopCountdown() {
	c.ticker.Stop()
}

// Countdown returns the latest snapshot, evaluating on demand before the
// first tick.
func (c *Controller) Countdown() countdown.Snapshot {
	c.mu.RLock()
	snap, ok := c.snapshot, c.ticked
	c.mu.RUnlock()
	if ok {
		return snap
	}
	return c.engine.Evaluate(c.Now())
}

func (c *Controller) tick(now time.Time) {
	snap := c.engine.Evaluate(now)

	c.mu.Lock()
	c.snapshot = snap
	c.ticked = true
	hooks := append([]func(countdown.Snapshot){}, c.onTick...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(snap)
	}
}

// Theme returns the visitor's stored theme, light by default.
func (c *Controller) Theme(ctx context.Context, visitor string) preference.Theme {
	t, err := preference.GetOr(ctx, c.prefs, visitor, preference.ThemeLight)
	if err != nil {
		appLog.Error("controller: read theme failed", err, "visitor", visitor)
	}
	return t
}

// SetTheme stores an explicit theme choice.
func (c *Controller) SetTheme(ctx context.Context, visitor string, t preference.Theme) error {
	if visitor == "" {
		return ErrMissingVisitor
	}
	return c.prefs.Set(ctx, visitor, t)
}
