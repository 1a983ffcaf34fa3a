package share

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/internal/booking"
	"railbook/internal/civil"
)

func composer() Composer {
	return Composer{
		Rules:   booking.DefaultRules(),
		Product: "RailBookingDate.com",
		SiteURL: "https://railbookingdate.com/",
	}
}

var noon = time.Date(2026, 1, 1, 12, 0, 0, 0, civil.IST)

func TestComposeFuture(t *testing.T) {
	p := composer().Compose(civil.New(2026, 3, 15), noon)

	assert.Equal(t,
		"Train Travel: Sunday, 15 March 2026\nBooking opens: Wednesday, 14 January 2026 at 8:00 AM\n\nCalculated via RailBookingDate.com",
		p.Clipboard)
	assert.Equal(t,
		"Train travel on Sunday, 15 March 2026 - Booking opens Wednesday, 14 January 2026 at 8:00 AM",
		p.NativeText)
	assert.Equal(t, NativeTitle, p.NativeTitle)
	assert.Contains(t, p.WhatsApp, "*Booking Opens:* Wednesday, 14 January 2026")
	assert.Contains(t, p.WhatsApp, "Be ready at 7:55 AM")
	assert.Empty(t, p.BookURL)
	require.NotEmpty(t, p.GoogleCalendarURL)

	u, err := url.Parse(p.GoogleCalendarURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "TEMPLATE", q.Get("action"))
	assert.Equal(t, "20260114T075500/20260114T080500", q.Get("dates"))
	assert.Equal(t, "Asia/Kolkata", q.Get("ctz"))
	assert.Equal(t, "IRCTC Booking Opens - Sunday, 15 March 2026", q.Get("text"))
	assert.Contains(t, q.Get("details"), "opens at 8:00 AM IST")
}

func TestComposeOpen(t *testing.T) {
	p := composer().Compose(civil.New(2026, 2, 1), noon)

	assert.Equal(t,
		"Train Travel: Sunday, 1 February 2026\nBooking is open now!\n\nCalculated via RailBookingDate.com",
		p.Clipboard)
	assert.Equal(t, "Train travel on Sunday, 1 February 2026 - Booking is open now!", p.NativeText)
	assert.Equal(t, DefaultBookingURL, p.BookURL)
	assert.Empty(t, p.GoogleCalendarURL)
	assert.Contains(t, p.WhatsApp, "Booking is OPEN now!")
}

func TestComposeOpensToday(t *testing.T) {
	morning := time.Date(2026, 1, 1, 7, 0, 0, 0, civil.IST)
	p := composer().Compose(civil.New(2026, 3, 2), morning)

	assert.Equal(t, booking.KindOpensToday, p.Message.Kind)
	assert.Contains(t, p.Clipboard, "Booking opens: Thursday, 1 January 2026 at 8:00 AM")
	assert.Empty(t, p.BookURL)
}

func TestWhatsAppURL(t *testing.T) {
	link := WhatsAppURL("*Hi* there\nline & more")
	require.True(t, strings.HasPrefix(link, "https://wa.me/?text="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "*Hi* there\nline & more", u.Query().Get("text"))
}

func TestCustomBookingURL(t *testing.T) {
	c := composer()
	c.BookingURL = "https://example.test/book"
	p := c.Compose(civil.New(2026, 2, 1), noon)
	assert.Equal(t, "https://example.test/book", p.BookURL)
}

func TestToasts(t *testing.T) {
	assert.Equal(t, Toast{OK: true, Message: "Copied to clipboard!"}, CopyResult(nil))
	assert.Equal(t, Toast{Message: "Failed to copy"}, CopyResult(errors.New("denied")))
	assert.True(t, ExportResult(nil).OK)
	assert.False(t, ExportResult(errors.New("x")).OK)
}
