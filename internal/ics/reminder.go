// Package ics builds and inspects the booking-open reminder exported as an
// iCalendar file.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"railbook/internal/booking"
	"railbook/internal/civil"
)

const (
	// StampLayout is the floating DATE-TIME form used with TZID.
	StampLayout = "20060102T150405"

	DefaultProdID   = "-//RailBookingDate//IRCTC Booking Reminder//EN"
	DefaultLocation = "IRCTC Website"
	AlarmTrigger    = "-PT5M"
	AlarmText       = "IRCTC booking opens in 5 minutes!"
	FileName        = "irctc-booking-reminder.ics"

	// lead is how long before the opening the event starts and how long
	// after it ends.
	lead = 5 * time.Minute
)

// Reminder is a 10-minute event around the general booking opening for a
// travel date.
type Reminder struct {
	Travel      civil.Date
	Open        civil.Date
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// NewReminder derives the reminder for travel. bookingURL and product feed the
// description text.
func NewReminder(rules booking.Rules, travel civil.Date, product, bookingURL string) Reminder {
	open := rules.GeneralOpenDate(travel)
	opening := open.At(rules.OpenHour, rules.OpenMinute)
	long := travel.Format(booking.LongLayout)
	start := opening.Add(-lead)

	return Reminder{
		Travel: travel,
		Open:   open,
		Title:  "IRCTC Booking Opens - " + long,
		Description: fmt.Sprintf(
			"Train ticket booking for %s opens at %s IST.\n\nBe ready at %s to book your tickets!\n\nBook at: %s\n\nCalculated via %s",
			long, rules.OpenTimeLabel(), booking.ClockLabel(start.Hour(), start.Minute()), bookingURL, product),
		Location: DefaultLocation,
		Start:    start,
		End:      opening.Add(lead),
	}
}

// StartStamp is DTSTART in IST, e.g. 20260114T075500.
func (r Reminder) StartStamp() string { return r.Start.In(civil.IST).Format(StampLayout) }

// EndStamp is DTEND in IST.
func (r Reminder) EndStamp() string { return r.End.In(civil.IST).Format(StampLayout) }

// Exporter serializes reminders.
type Exporter struct {
	ProdID string
	Domain string

	now   func() time.Time
	newID func() string
}

// NewExporter returns an exporter whose UIDs end in "@domain".
func NewExporter(domain string) *Exporter {
	return &Exporter{
		ProdID: DefaultProdID,
		Domain: domain,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Calendar builds the VCALENDAR for rem.
func (e *Exporter) Calendar(rem Reminder) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(e.ProdID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	uid := e.newID()
	if e.Domain != "" {
		uid += "@" + e.Domain
	}
	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(e.now().UTC())
	ev.SetProperty(ical.ComponentPropertyDtStart, rem.StartStamp(), tzid())
	ev.SetProperty(ical.ComponentPropertyDtEnd, rem.EndStamp(), tzid())
	ev.SetSummary(rem.Title)
	ev.SetDescription(rem.Description)
	ev.SetLocation(rem.Location)

	alarm := ev.AddAlarm()
	alarm.SetTrigger(AlarmTrigger)
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetProperty(ical.ComponentPropertyDescription, AlarmText)

	return cal
}

// Serialize renders rem as an .ics document.
func (e *Exporter) Serialize(rem Reminder) string {
	return e.Calendar(rem).Serialize()
}

func tzid() ical.PropertyParameter {
	return &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{civil.ZoneName}}
}
