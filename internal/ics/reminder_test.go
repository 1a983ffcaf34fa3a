package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/internal/booking"
	"railbook/internal/civil"
)

func testExporter() *Exporter {
	e := NewExporter("railbookingdate.com")
	e.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	e.newID = func() string { return "fixed-uid" }
	return e
}

func TestNewReminder(t *testing.T) {
	rem := NewReminder(booking.DefaultRules(), civil.New(2026, 3, 15), "RailBookingDate.com", "https://www.irctc.co.in")

	assert.Equal(t, civil.New(2026, 1, 14), rem.Open)
	assert.Equal(t, "20260114T075500", rem.StartStamp())
	assert.Equal(t, "20260114T080500", rem.EndStamp())
	assert.Equal(t, "IRCTC Booking Opens - Sunday, 15 March 2026", rem.Title)
	assert.Contains(t, rem.Description, "opens at 8:00 AM IST")
	assert.Contains(t, rem.Description, "Be ready at 7:55 AM")
	assert.Contains(t, rem.Description, "Calculated via RailBookingDate.com")
	assert.Equal(t, DefaultLocation, rem.Location)
}

func TestSerializeReminder(t *testing.T) {
	rem := NewReminder(booking.DefaultRules(), civil.New(2026, 3, 15), "RailBookingDate.com", "https://www.irctc.co.in")
	doc := testExporter().Serialize(rem)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"DTSTART;TZID=Asia/Kolkata:20260114T075500",
		"DTEND;TZID=Asia/Kolkata:20260114T080500",
		"UID:fixed-uid@railbookingdate.com",
		"BEGIN:VALARM",
		"TRIGGER:-PT5M",
		"ACTION:DISPLAY",
		"END:VCALENDAR",
	} {
		assert.Contains(t, doc, want)
	}
	assert.Equal(t, 1, strings.Count(doc, "BEGIN:VALARM"))
}

func TestInspectRoundTrip(t *testing.T) {
	rem := NewReminder(booking.DefaultRules(), civil.New(2026, 3, 15), "RailBookingDate.com", "https://www.irctc.co.in")
	got, err := Inspect([]byte(testExporter().Serialize(rem)))
	require.NoError(t, err)

	assert.Equal(t, "PUBLISH", got.Method)
	assert.Equal(t, DefaultProdID, got.ProdID)
	assert.Equal(t, "fixed-uid@railbookingdate.com", got.UID)
	assert.Equal(t, civil.ZoneName, got.StartTZ)
	assert.Equal(t, civil.ZoneName, got.EndTZ)
	assert.True(t, rem.Start.Equal(got.Start), "start %s", got.Start)
	assert.True(t, rem.End.Equal(got.End), "end %s", got.End)
	assert.Equal(t, 10*time.Minute, got.End.Sub(got.Start))
	assert.Contains(t, got.Summary, "15 March 2026")
	assert.Equal(t, DefaultLocation, got.Location)

	require.Len(t, got.Alarms, 1)
	assert.Equal(t, "DISPLAY", got.Alarms[0].Action)
	assert.Equal(t, AlarmTrigger, got.Alarms[0].Trigger)
}

func TestInspectErrors(t *testing.T) {
	_, err := Inspect(nil)
	assert.Error(t, err)

	_, err = Inspect([]byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"))
	assert.Error(t, err)
}

func TestParseICSTime(t *testing.T) {
	tests := []struct {
		v, tz string
		want  time.Time
	}{
		{"20260114T075500", "Asia/Kolkata", time.Date(2026, 1, 14, 7, 55, 0, 0, civil.IST)},
		{"20260114T022500Z", "", time.Date(2026, 1, 14, 2, 25, 0, 0, time.UTC)},
		{"20260114", "", time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseICSTime(tt.v, tt.tz)
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), "%s -> %s", tt.v, got)
	}

	_, err := parseICSTime(" ", "")
	assert.Error(t, err)
}

func TestUnescapeText(t *testing.T) {
	assert.Equal(t, "a, b; c\nd\\e", unescapeText(`a\, b\; c\nd\\e`))
}
