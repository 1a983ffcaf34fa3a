package controller

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/internal/booking"
	"railbook/internal/calendar"
	"railbook/internal/civil"
	"railbook/internal/countdown"
	"railbook/internal/holiday"
	"railbook/internal/preference"
	"railbook/internal/share"
)

var noon = time.Date(2026, 1, 1, 12, 0, 0, 0, civil.IST)

func newController(now time.Time) *Controller {
	rules := booking.DefaultRules()
	clock := func() time.Time { return now }
	return New(Deps{
		Clock:    civil.NewClock(clock, 0),
		Rules:    rules,
		Renderer: calendar.New(rules, holiday.Embedded(), calendar.Options{}),
		Ticker:   countdown.NewTicker(clock),
		Composer: share.Composer{Rules: rules, Product: "RailBookingDate.com"},
	})
}

func TestSelectThenShare(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()

	_, err := c.Dispatch(ctx, Event{Kind: EventCopy, Visitor: "v1"})
	assert.ErrorIs(t, err, ErrNoSelection)

	res, err := c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "2026-03-15"})
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.Equal(t, booking.KindFuture, res.Message.Kind)
	assert.Equal(t, EventSelect, res.Kind)

	sel, ok := c.Selected("v1")
	require.True(t, ok)
	assert.Equal(t, civil.New(2026, 3, 15), sel)

	_, ok = c.Selected("v2")
	assert.False(t, ok)

	res, err = c.Dispatch(ctx, Event{Kind: EventCopy, Visitor: "v1"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Train Travel: Sunday, 15 March 2026")
	require.NotNil(t, res.Toast)
	assert.True(t, res.Toast.OK)

	res, err = c.Dispatch(ctx, Event{Kind: EventShare, Visitor: "v1"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Train travel on Sunday, 15 March 2026")

	res, err = c.Dispatch(ctx, Event{Kind: EventWhatsApp, Visitor: "v1"})
	require.NoError(t, err)
	assert.Contains(t, res.Link, "https://wa.me/?text=")
}

func TestSelectionReplacedOnlyByNewSelection(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()

	_, err := c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "2026-02-01"})
	require.NoError(t, err)

	_, err = c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "2025-12-31"})
	assert.ErrorIs(t, err, ErrNotSelectable)

	_, err = c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "not-a-date"})
	assert.ErrorIs(t, err, civil.ErrInvalidDate)

	sel, _ := c.Selected("v1")
	assert.Equal(t, civil.New(2026, 2, 1), sel)

	_, err = c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "2026-02-02"})
	require.NoError(t, err)
	sel, _ = c.Selected("v1")
	assert.Equal(t, civil.New(2026, 2, 2), sel)
}

func TestSelectableRange(t *testing.T) {
	c := newController(noon)
	today := civil.New(2026, 1, 1)

	assert.True(t, c.Selectable(today))
	assert.True(t, c.Selectable(today.AddDays(calendar.DefaultPickerDays)))
	assert.False(t, c.Selectable(today.AddDays(calendar.DefaultPickerDays+1)))
	assert.False(t, c.Selectable(today.AddDays(-1)))
}

func TestExport(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()

	_, err := c.Dispatch(ctx, Event{Kind: EventExport, Visitor: "v1"})
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "2026-02-01"})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, Event{Kind: EventExport, Visitor: "v1"})
	assert.ErrorIs(t, err, ErrNotExportable)

	_, err = c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: "2026-03-15"})
	require.NoError(t, err)
	res, err := c.Dispatch(ctx, Event{Kind: EventExport, Visitor: "v1"})
	require.NoError(t, err)
	assert.Contains(t, res.ICS, "DTSTART;TZID=Asia/Kolkata:20260114T075500")
	assert.Equal(t, "irctc-booking-reminder.ics", res.FileName)
	assert.Contains(t, res.Link, "calendar.google.com")
	require.NotNil(t, res.Toast)
	assert.True(t, res.Toast.OK)
}

func TestToggleTheme(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()

	_, err := c.Dispatch(ctx, Event{Kind: EventToggleTheme})
	assert.ErrorIs(t, err, ErrMissingVisitor)

	assert.Equal(t, preference.ThemeLight, c.Theme(ctx, "v1"))

	res, err := c.Dispatch(ctx, Event{Kind: EventToggleTheme, Visitor: "v1"})
	require.NoError(t, err)
	assert.Equal(t, preference.ThemeDark, res.Theme)
	assert.Equal(t, preference.ThemeDark, c.Theme(ctx, "v1"))

	res, err = c.Dispatch(ctx, Event{Kind: EventToggleTheme, Visitor: "v1"})
	require.NoError(t, err)
	assert.Equal(t, preference.ThemeLight, res.Theme)

	require.NoError(t, c.SetTheme(ctx, "v2", preference.ThemeDark))
	assert.Equal(t, preference.ThemeDark, c.Theme(ctx, "v2"))
	assert.ErrorIs(t, c.SetTheme(ctx, "", preference.ThemeDark), ErrMissingVisitor)
}

func TestOpenPickerAndUnknownEvent(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()

	res, err := c.Dispatch(ctx, Event{Kind: EventOpenPicker})
	require.NoError(t, err)
	require.NotNil(t, res.Picker)
	assert.Equal(t, "picker", res.Picker.Mode)

	_, err = c.Dispatch(ctx, Event{Kind: "dance"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestViews(t *testing.T) {
	c := newController(noon)

	assert.Equal(t, civil.New(2026, 1, 1), c.Today())
	assert.Equal(t, "You can book tickets for travel up to 2 March (Monday)", c.Summary())
	assert.Equal(t, "Booking is open now!", c.Booking(civil.New(2026, 3, 2)).Text)
	assert.Equal(t, "Travel Date Passed", c.Popup(civil.New(2025, 12, 1)).Title)
	assert.NotEmpty(t, c.Overview().Months)
}

func TestCountdownLifecycle(t *testing.T) {
	c := newController(time.Date(2026, 1, 1, 7, 59, 50, 0, civil.IST))

	// Before the first tick the snapshot is computed on demand.
	it, ok := c.Countdown().Item("general")
	require.True(t, ok)
	assert.Equal(t, "00:00:10", it.Clock())

	var ticks atomic.Int32
	c.OnTick(func(countdown.Snapshot) { ticks.Add(1) })

	require.NoError(t, c.StartCountdown())
	require.NoError(t, c.StartCountdown())
	assert.GreaterOrEqual(t, ticks.Load(), int32(2))

	it, ok = c.Countdown().Item("general")
	require.True(t, ok)
	assert.Equal(t, countdown.StateUrgent, it.State)

	c.StopCountdown()
	c.StopCountdown()
}

func TestSelectCarriesLongDateAndBookLink(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()

	tests := []struct {
		date    string
		travel  string
		bookURL string
	}{
		{"2026-02-20", "Friday, 20 February 2026", share.DefaultBookingURL},
		{"2026-03-15", "Sunday, 15 March 2026", ""},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			res, err := c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: "v1", Date: tt.date})
			require.NoError(t, err)
			assert.Equal(t, tt.travel, res.Travel)
			require.NotNil(t, res.Share)
			assert.Equal(t, tt.bookURL, res.Share.BookURL)
			assert.Equal(t, res.Share.Message, *res.Message)
		})
	}

	_, err := c.Dispatch(ctx, Event{Kind: EventSelect, Date: "2026-02-20"})
	assert.ErrorIs(t, err, ErrMissingVisitor)
}

func TestSelectionsExpireAndStayBounded(t *testing.T) {
	now := noon
	clock := func() time.Time { return now }
	rules := booking.DefaultRules()
	c := New(Deps{
		Clock:         civil.NewClock(clock, time.Nanosecond),
		Rules:         rules,
		Ticker:        countdown.NewTicker(clock),
		SelectionTTL:  time.Hour,
		MaxSelections: 3,
	})
	ctx := context.Background()
	sel := func(visitor string) {
		t.Helper()
		_, err := c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: visitor, Date: "2026-02-01"})
		require.NoError(t, err)
	}

	sel("v1")
	now = now.Add(59 * time.Minute)
	_, ok := c.Selected("v1")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Selected("v1")
	assert.False(t, ok, "selection older than the TTL is absent")
	assert.Equal(t, 1, c.Selections())

	sel("v2")
	assert.Equal(t, 1, c.Selections(), "expired entries are pruned on write")

	for _, v := range []string{"v3", "v4", "v5"} {
		now = now.Add(time.Second)
		sel(v)
	}
	assert.Equal(t, 3, c.Selections())
	_, ok = c.Selected("v2")
	assert.False(t, ok, "oldest selection is evicted when full")
	for _, v := range []string{"v3", "v4", "v5"} {
		_, ok = c.Selected(v)
		assert.True(t, ok, v)
	}

	// Reselecting an existing visitor never evicts another one.
	now = now.Add(time.Second)
	sel("v3")
	assert.Equal(t, 3, c.Selections())
	_, ok = c.Selected("v4")
	assert.True(t, ok)
}

func TestSelectionsBoundedUnderManyVisitors(t *testing.T) {
	c := newController(noon)
	ctx := context.Background()
	for i := 0; i < DefaultMaxSelections+500; i++ {
		_, err := c.Dispatch(ctx, Event{Kind: EventSelect, Visitor: fmt.Sprintf("v%d", i), Date: "2026-02-01"})
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxSelections, c.Selections())
}
