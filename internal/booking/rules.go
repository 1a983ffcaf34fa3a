// Package booking implements the IRCTC reservation-window rules.
//
// Every function is pure: callers pass "today" or "now" explicitly.
package booking

import (
	"fmt"
	"time"

	"railbook/internal/civil"
)

const (
	DefaultAdvanceDays = 60
	DefaultOpenHour    = 8
	DefaultOpenMinute  = 0
)

// Status is the date-granularity booking status of a travel date.
type Status string

const (
	StatusPast   Status = "past"
	StatusOpen   Status = "open"
	StatusFuture Status = "future"
)

// TatkalRule selects how a Tatkal opening maps to a travel date.
type TatkalRule string

const (
	// TatkalNextDay: booking on day N is for travel on day N+1 (IRCTC rule).
	TatkalNextDay TatkalRule = "next-day"
	// TatkalSameDay: booking on day N is for travel on day N.
	TatkalSameDay TatkalRule = "same-day"
)

// ParseTatkalRule accepts "next-day" or "same-day".
func ParseTatkalRule(s string) (TatkalRule, error) {
	switch TatkalRule(s) {
	case TatkalNextDay, TatkalSameDay:
		return TatkalRule(s), nil
	default:
		return "", fmt.Errorf("booking: unknown tatkal rule %q", s)
	}
}

// Rules holds the reservation-window parameters.
type Rules struct {
	AdvanceDays int
	Tatkal      TatkalRule
	OpenHour    int
	OpenMinute  int
}

// DefaultRules returns the current IRCTC general-quota rules.
func DefaultRules() Rules {
	return Rules{
		AdvanceDays: DefaultAdvanceDays,
		Tatkal:      TatkalNextDay,
		OpenHour:    DefaultOpenHour,
		OpenMinute:  DefaultOpenMinute,
	}
}

// GeneralOpenDate is the date general-quota booking opens for travel.
func (r Rules) GeneralOpenDate(travel civil.Date) civil.Date {
	return travel.AddDays(-r.AdvanceDays)
}

// GeneralTravelDateFor is the travel date a general booking opening at
// instant t is for.
func (r Rules) GeneralTravelDateFor(t time.Time) civil.Date {
	return civil.FromTime(t).AddDays(r.AdvanceDays)
}

// TatkalTravelDateFor is the travel date of the Tatkal window opening at t.
func (r Rules) TatkalTravelDateFor(t time.Time) civil.Date {
	d := civil.FromTime(t)
	if r.Tatkal == TatkalSameDay {
		return d
	}
	return d.AddDays(1)
}

// TatkalOpenDate is the date the Tatkal window for travel opens.
func (r Rules) TatkalOpenDate(travel civil.Date) civil.Date {
	if r.Tatkal == TatkalSameDay {
		return travel
	}
	return travel.AddDays(-1)
}

// LastOpenDate is the furthest travel date open for booking on today.
func (r Rules) LastOpenDate(today civil.Date) civil.Date {
	return today.AddDays(r.AdvanceDays)
}

// Classify returns past if travel < today, open if
// today <= travel <= today+AdvanceDays, future otherwise.
func (r Rules) Classify(travel, today civil.Date) Status {
	switch {
	case travel.Before(today):
		return StatusPast
	case !travel.After(r.LastOpenDate(today)):
		return StatusOpen
	default:
		return StatusFuture
	}
}

// OpenTimeLabel renders the opening time as "8:00 AM".
func (r Rules) OpenTimeLabel() string {
	return ClockLabel(r.OpenHour, r.OpenMinute)
}

// ClockLabel formats hour:minute on a 12-hour clock, e.g. "10:00 AM".
func ClockLabel(hour, minute int) string {
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format("3:04 PM")
}
