package booking

import (
	"fmt"
	"time"

	"railbook/internal/civil"
)

// MessageKind is the finer, within-day status shown to a user who picked a
// travel date.
type MessageKind string

const (
	KindPast       MessageKind = "past"
	KindOpensToday MessageKind = "opens-today"
	KindOpen       MessageKind = "open"
	KindFuture     MessageKind = "future"
)

const (
	LongLayout  = "Monday, 2 January 2006"
	ShortLayout = "2 Jan 2006"
)

// Message is the booking verdict for a selected travel date.
type Message struct {
	Travel   civil.Date  `json:"travel_date"`
	Status   Status      `json:"status"`
	Kind     MessageKind `json:"kind"`
	OpenDate civil.Date  `json:"open_date"`
	Text     string      `json:"text"`

	// CanExport is true when a reminder for a future opening makes sense.
	CanExport bool `json:"can_export"`
	// CanBook is true when booking is open right now.
	CanBook bool `json:"can_book"`
}

// Message computes the verdict for travel at instant now. It refines
// Classify: on the boundary date (today+AdvanceDays) booking is reported as
// opening later today until the opening time has passed.
func (r Rules) Message(travel civil.Date, now time.Time) Message {
	now = now.In(civil.IST)
	today := civil.FromTime(now)
	status := r.Classify(travel, today)

	m := Message{
		Travel:   travel,
		Status:   status,
		OpenDate: r.GeneralOpenDate(travel),
	}

	switch {
	case status == StatusPast:
		m.Kind = KindPast
		m.Text = "Travel date has passed"
	case travel == r.LastOpenDate(today) && now.Before(today.At(r.OpenHour, r.OpenMinute)):
		m.Kind = KindOpensToday
		m.Text = fmt.Sprintf("Booking opens today at %s", r.OpenTimeLabel())
	case status == StatusOpen:
		m.Kind = KindOpen
		m.Text = "Booking is open now!"
		m.CanBook = true
	default:
		m.Kind = KindFuture
		m.Text = fmt.Sprintf("Booking opens on %s (%s) at %s",
			m.OpenDate.Format("2 January"),
			m.OpenDate.Weekday(),
			r.OpenTimeLabel())
		m.CanExport = true
	}
	return m
}

// Summary is the headline for today's booking horizon.
func (r Rules) Summary(today civil.Date) string {
	last := r.LastOpenDate(today)
	return fmt.Sprintf("You can book tickets for travel up to %s (%s)", last.Format("2 January"), last.Weekday())
}
