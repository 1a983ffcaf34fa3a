package countdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/internal/booking"
	"railbook/internal/civil"
)

func ist(h, m, s int) time.Time {
	return time.Date(2026, 1, 1, h, m, s, 0, civil.IST)
}

func TestGeneralCountdown(t *testing.T) {
	e := NewEngine(booking.DefaultRules(), nil)

	tests := []struct {
		name   string
		now    time.Time
		clock  string
		state  State
		next   time.Time
		travel civil.Date
	}{
		{
			name:   "ten seconds before opening is urgent",
			now:    ist(7, 59, 50),
			clock:  "00:00:10",
			state:  StateUrgent,
			next:   ist(8, 0, 0),
			travel: civil.New(2026, 3, 2),
		},
		{
			name:   "rolls over at the opening instant",
			now:    ist(8, 0, 0),
			clock:  "24:00:00",
			state:  StateCountingDown,
			next:   ist(8, 0, 0).AddDate(0, 0, 1),
			travel: civil.New(2026, 3, 3),
		},
		{
			name:   "exactly five minutes is urgent",
			now:    ist(7, 55, 0),
			clock:  "00:05:00",
			state:  StateUrgent,
			next:   ist(8, 0, 0),
			travel: civil.New(2026, 3, 2),
		},
		{
			name:   "five minutes and a second is not",
			now:    ist(7, 54, 59),
			clock:  "00:05:01",
			state:  StateCountingDown,
			next:   ist(8, 0, 0),
			travel: civil.New(2026, 3, 2),
		},
		{
			name:   "evening counts to tomorrow",
			now:    ist(21, 30, 15),
			clock:  "10:29:45",
			state:  StateCountingDown,
			next:   ist(8, 0, 0).AddDate(0, 0, 1),
			travel: civil.New(2026, 3, 3),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := e.Evaluate(tt.now)
			require.False(t, snap.Hidden)
			it, ok := snap.Item("general")
			require.True(t, ok)
			assert.Equal(t, tt.clock, it.Clock())
			assert.Equal(t, tt.state, it.State)
			assert.True(t, tt.next.Equal(it.Next), "next = %s", it.Next)
			assert.Equal(t, tt.travel, it.Travel)
		})
	}
}

func TestFloorSeconds(t *testing.T) {
	e := NewEngine(booking.DefaultRules(), nil)
	now := ist(7, 59, 50).Add(400 * time.Millisecond)
	it, _ := e.Evaluate(now).Item("general")
	assert.Equal(t, "00:00:09", it.Clock())
}

func TestHiddenBeforeSix(t *testing.T) {
	e := NewEngine(booking.DefaultRules(), nil)

	for _, now := range []time.Time{ist(0, 0, 0), ist(5, 59, 59)} {
		snap := e.Evaluate(now)
		assert.True(t, snap.Hidden)
		require.Len(t, snap.Items, 3)
		for _, it := range snap.Items {
			assert.Equal(t, StateHidden, it.State)
			assert.True(t, it.Travel.IsZero())
		}
	}

	assert.False(t, e.Evaluate(ist(6, 0, 0)).Hidden)
}

func TestHiddenUsesISTNotHostZone(t *testing.T) {
	e := NewEngine(booking.DefaultRules(), nil)
	// 01:00 UTC is 06:30 IST.
	snap := e.Evaluate(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC))
	assert.False(t, snap.Hidden)
	assert.Equal(t, civil.IST, snap.At.Location())
}

func TestTatkalWindowOpen(t *testing.T) {
	e := NewEngine(booking.DefaultRules(), nil)

	snap := e.Evaluate(ist(9, 0, 0))
	ac, _ := snap.Item("tatkal-ac")
	assert.Equal(t, StateCountingDown, ac.State)
	assert.Equal(t, "01:00:00", ac.Clock())
	assert.Equal(t, civil.New(2026, 1, 2), ac.Travel)

	snap = e.Evaluate(ist(10, 30, 0))
	ac, _ = snap.Item("tatkal-ac")
	assert.Equal(t, StateWindowOpen, ac.State)
	assert.Equal(t, "Tatkal AC Booking is OPEN!", ac.Message)
	assert.Equal(t, civil.New(2026, 1, 2), ac.Travel)
	assert.True(t, ac.Next.IsZero())

	sl, _ := snap.Item("tatkal-sleeper")
	assert.Equal(t, StateCountingDown, sl.State)
	assert.Equal(t, "00:30:00", sl.Clock())

	snap = e.Evaluate(ist(23, 59, 59))
	sl, _ = snap.Item("tatkal-sleeper")
	assert.Equal(t, StateWindowOpen, sl.State)

	gen, _ := snap.Item("general")
	assert.NotEqual(t, StateWindowOpen, gen.State)
}

func TestTatkalSameDayRule(t *testing.T) {
	rules := booking.DefaultRules()
	rules.Tatkal = booking.TatkalSameDay
	e := NewEngine(rules, nil)

	ac, _ := e.Evaluate(ist(9, 0, 0)).Item("tatkal-ac")
	assert.Equal(t, civil.New(2026, 1, 1), ac.Travel)
	assert.Equal(t, "Thursday, 1 Jan", ac.TravelLabel)
}

func TestTargetsCopy(t *testing.T) {
	e := NewEngine(booking.DefaultRules(), nil)
	ts := e.Targets()
	ts[0].Hour = 3
	assert.Equal(t, 8, e.Targets()[0].Hour)
}

func TestTickerReplacesRunningJob(t *testing.T) {
	fixed := ist(9, 0, 0)
	tk := NewTicker(func() time.Time { return fixed })

	var first, second atomic.Int32
	require.NoError(t, tk.Start(func(time.Time) { first.Add(1) }))
	require.NoError(t, tk.Start(func(now time.Time) {
		assert.True(t, fixed.Equal(now))
		second.Add(1)
	}))
	assert.True(t, tk.Running())

	time.Sleep(2200 * time.Millisecond)
	tk.Stop()

	assert.Equal(t, int32(1), first.Load(), "replaced job must not tick")
	assert.GreaterOrEqual(t, second.Load(), int32(2))

	tk.Stop()
	assert.False(t, tk.Running())
}
