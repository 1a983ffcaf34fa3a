// Package calendar builds month-grouped 7-column grids of classified days.
package calendar

import (
	"fmt"
	"sync"

	"railbook/internal/booking"
	"railbook/internal/civil"
	"railbook/internal/holiday"
	appLog "railbook/internal/log"
	"railbook/internal/model"
)

// OverviewMode selects the overview range.
type OverviewMode string

const (
	// ModeCutoff renders from the first of the current month to a fixed date.
	ModeCutoff OverviewMode = "cutoff"
	// ModeRolling renders from the first of the current month to today+RollingDays.
	ModeRolling OverviewMode = "rolling"

	ModePicker = "picker"
)

const (
	DefaultRollingDays = 90
	DefaultPickerDays  = 120
)

// ParseOverviewMode accepts "cutoff" or "rolling".
func ParseOverviewMode(s string) (OverviewMode, error) {
	switch OverviewMode(s) {
	case ModeCutoff, ModeRolling:
		return OverviewMode(s), nil
	default:
		return "", fmt.Errorf("calendar: unknown overview mode %q", s)
	}
}

// Options configures the two render modes.
type Options struct {
	Mode        OverviewMode
	Cutoff      civil.Date
	RollingDays int
	PickerDays  int
}

// Renderer classifies days with Rules and decorates them from Holidays.
type Renderer struct {
	Rules    booking.Rules
	Holidays *holiday.Table
	Options  Options

	fallbackOnce sync.Once
}

// New returns a Renderer; zero option values take the defaults.
func New(rules booking.Rules, holidays *holiday.Table, opts Options) *Renderer {
	if opts.Mode == "" {
		opts.Mode = ModeCutoff
	}
	if opts.RollingDays <= 0 {
		opts.RollingDays = DefaultRollingDays
	}
	if opts.PickerDays <= 0 {
		opts.PickerDays = DefaultPickerDays
	}
	if holidays == nil {
		holidays = holiday.Empty()
	}
	return &Renderer{Rules: rules, Holidays: holidays, Options: opts}
}

// Overview renders the overview calendar for today.
func (r *Renderer) Overview(today civil.Date) model.Calendar {
	from := today.FirstOfMonth()
	mode := r.Options.Mode
	to := r.Options.Cutoff

	if mode == ModeCutoff && (to.IsZero() || to.Before(today)) {
		r.fallbackOnce.Do(func() {
			appLog.Info("calendar: overview cutoff is in the past, using rolling range",
				"cutoff", to.String(), "rolling_days", r.Options.RollingDays)
		})
		mode = ModeRolling
	}
	if mode == ModeRolling {
		to = today.AddDays(r.Options.RollingDays)
	}

	return model.Calendar{
		Mode:    string(mode),
		From:    from,
		To:      to,
		Today:   today,
		Summary: r.Rules.Summary(today),
		Months:  r.Build(from, to, today, false),
	}
}

// Picker renders today through today+PickerDays. Past days are disabled.
func (r *Renderer) Picker(today civil.Date) model.Calendar {
	to := today.AddDays(r.Options.PickerDays)
	return model.Calendar{
		Mode:   ModePicker,
		From:   today,
		To:     to,
		Today:  today,
		Months: r.Build(today, to, today, true),
	}
}

// Build walks from the first of from's month through to, one day per step,
// and returns one grid block per month. Days before from are rendered as past
// and disabled so every block starts on day 1. In picker mode days before
// today are disabled too.
func (r *Renderer) Build(from, to, today civil.Date, picker bool) []model.Month {
	months := make([]model.Month, 0)
	if to.Before(from) {
		return months
	}

	var cur *model.Month
	for d := from.FirstOfMonth(); !d.After(to); d = d.AddDays(1) {
		if cur == nil || d.Day() == 1 {
			if cur != nil {
				months = append(months, finish(*cur))
			}
			lead := int(d.Weekday())
			cur = &model.Month{
				Year:    d.Year(),
				Month:   int(d.Month()),
				Name:    d.Format("January 2006"),
				Leading: lead,
				Cells:   make([]model.DayCell, lead, 42),
			}
			for i := range cur.Cells {
				cur.Cells[i] = model.DayCell{Empty: true, Weekday: i, Disabled: true}
			}
		}

		cell := r.Cell(d, today)
		cell.Disabled = d.Before(from) || (picker && d.Before(today))
		cur.Cells = append(cur.Cells, cell)
	}
	if cur != nil {
		months = append(months, finish(*cur))
	}
	return months
}

// Cell classifies a single day.
func (r *Renderer) Cell(d, today civil.Date) model.DayCell {
	status := model.FromBooking(r.Rules.Classify(d, today))
	if status != model.DayPast && r.Rules.TatkalOpenDate(d) == today {
		status = model.DayTatkalWindow
	}

	cell := model.DayCell{
		Date:    d,
		Day:     d.Day(),
		Weekday: int(d.Weekday()),
		Status:  status,
		Today:   d == today,
	}
	if h, ok := r.Holidays.Lookup(d); ok {
		cell.Holiday = &h
	}
	return cell
}

// finish pads the trailing row to a multiple of seven.
func finish(m model.Month) model.Month {
	for wd := len(m.Cells) % 7; wd > 0 && wd < 7; wd++ {
		m.Cells = append(m.Cells, model.DayCell{Empty: true, Weekday: wd, Disabled: true})
	}
	return m
}
