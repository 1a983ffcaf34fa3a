// Package share renders the text and links a user can copy or send for a
// selected travel date.
package share

import (
	"fmt"
	"net/url"
	"time"

	"railbook/internal/booking"
	"railbook/internal/civil"
	"railbook/internal/ics"
)

const (
	WhatsAppBase       = "https://wa.me/"
	GoogleCalendarBase = "https://calendar.google.com/calendar/render"
	NativeTitle        = "Train Booking Date"
	DefaultBookingURL  = "https://www.irctc.co.in/nget/train-search"
)

// Composer holds the product details woven into every message.
type Composer struct {
	Rules      booking.Rules
	Product    string
	BookingURL string
	SiteURL    string
}

// Payload is everything the share actions need for one travel date.
type Payload struct {
	Message booking.Message `json:"message"`

	Clipboard   string `json:"clipboard"`
	NativeTitle string `json:"native_title"`
	NativeText  string `json:"native_text"`
	NativeURL   string `json:"native_url,omitempty"`
	WhatsApp    string `json:"whatsapp"`
	WhatsAppURL string `json:"whatsapp_url"`

	// GoogleCalendarURL is set only when the opening is still ahead.
	GoogleCalendarURL string `json:"google_calendar_url,omitempty"`
	// BookURL is set only while booking is open.
	BookURL string `json:"book_url,omitempty"`
}

// Compose builds the payload for travel as seen at now.
func (c Composer) Compose(travel civil.Date, now time.Time) Payload {
	msg := c.Rules.Message(travel, now)
	p := Payload{
		Message:     msg,
		Clipboard:   c.ClipboardText(msg),
		NativeTitle: NativeTitle,
		NativeText:  c.NativeText(msg),
		NativeURL:   c.SiteURL,
		WhatsApp:    c.WhatsAppText(msg),
	}
	p.WhatsAppURL = WhatsAppURL(p.WhatsApp)
	if msg.CanExport {
		p.GoogleCalendarURL = GoogleCalendarURL(ics.NewReminder(c.Rules, travel, c.Product, c.bookingURL()))
	}
	if msg.CanBook {
		p.BookURL = c.bookingURL()
	}
	return p
}

func (c Composer) bookingURL() string {
	if c.BookingURL == "" {
		return DefaultBookingURL
	}
	return c.BookingURL
}

// statusLine is the second line of the clipboard text.
func (c Composer) statusLine(m booking.Message) string {
	switch {
	case m.Kind == booking.KindPast:
		return m.Text
	case m.CanBook:
		return "Booking is open now!"
	default:
		return fmt.Sprintf("Booking opens: %s at %s", m.OpenDate.Format(booking.LongLayout), c.Rules.OpenTimeLabel())
	}
}

// ClipboardText is "Train Travel: {date}\n{status}\n\nCalculated via {product}".
func (c Composer) ClipboardText(m booking.Message) string {
	return fmt.Sprintf("Train Travel: %s\n%s\n\nCalculated via %s",
		m.Travel.Format(booking.LongLayout), c.statusLine(m), c.Product)
}

// NativeText is the one-line text handed to a platform share sheet.
func (c Composer) NativeText(m booking.Message) string {
	status := "Booking is open now!"
	switch {
	case m.Kind == booking.KindPast:
		status = m.Text
	case !m.CanBook:
		status = fmt.Sprintf("Booking opens %s at %s", m.OpenDate.Format(booking.LongLayout), c.Rules.OpenTimeLabel())
	}
	return fmt.Sprintf("Train travel on %s - %s", m.Travel.Format(booking.LongLayout), status)
}

// WhatsAppText is the formatted chat message.
func (c Composer) WhatsAppText(m booking.Message) string {
	travel := m.Travel.Format(booking.LongLayout)
	if m.CanBook {
		return fmt.Sprintf("*Train Booking Alert!*\n\n*Travel Date:* %s\n*Status:* Booking is OPEN now!\n\nBook your tickets:\nIRCTC: %s\n\n_Calculate booking dates at %s_",
			travel, c.bookingURL(), c.Product)
	}
	return fmt.Sprintf("*Train Booking Reminder*\n\n*Travel Date:* %s\n*Booking Opens:* %s\n*Time:* %s IST\n\n*Pro Tip:* Be ready at %s to book your tickets!\n\nBook at: %s\n\n_Calculate booking dates at %s_",
		travel,
		m.OpenDate.Format(booking.LongLayout),
		c.Rules.OpenTimeLabel(),
		booking.ClockLabel(c.Rules.OpenHour, c.Rules.OpenMinute-5),
		c.bookingURL(),
		c.Product)
}

// WhatsAppURL is a wa.me link carrying text.
func WhatsAppURL(text string) string {
	return WhatsAppBase + "?text=" + url.QueryEscape(text)
}

// GoogleCalendarURL is a TEMPLATE link with the same event as the .ics file.
func GoogleCalendarURL(rem ics.Reminder) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", rem.Title)
	q.Set("dates", rem.StartStamp()+"/"+rem.EndStamp())
	q.Set("ctz", civil.ZoneName)
	q.Set("details", rem.Description)
	q.Set("location", "https://www.irctc.co.in")
	return GoogleCalendarBase + "?" + q.Encode()
}

// Toast is the transient result shown after a share action.
type Toast struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// CopyResult reports a clipboard write.
func CopyResult(err error) Toast {
	if err != nil {
		return Toast{Message: "Failed to copy"}
	}
	return Toast{OK: true, Message: "Copied to clipboard!"}
}

// ExportResult reports a calendar download.
func ExportResult(err error) Toast {
	if err != nil {
		return Toast{Message: "Could not create calendar event"}
	}
	return Toast{OK: true, Message: "Calendar event downloaded!"}
}
