package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"railbook/internal/civil"
)

func TestMessage(t *testing.T) {
	r := DefaultRules()
	morning := time.Date(2026, 1, 1, 7, 30, 0, 0, civil.IST)
	noon := time.Date(2026, 1, 1, 12, 0, 0, 0, civil.IST)

	tests := []struct {
		name     string
		travel   civil.Date
		now      time.Time
		kind     MessageKind
		text     string
		canBook  bool
		canExprt bool
	}{
		{
			name:   "past",
			travel: civil.New(2025, 12, 31),
			now:    noon,
			kind:   KindPast,
			text:   "Travel date has passed",
		},
		{
			name:   "boundary before opening time",
			travel: civil.New(2026, 3, 2),
			now:    morning,
			kind:   KindOpensToday,
			text:   "Booking opens today at 8:00 AM",
		},
		{
			name:    "boundary after opening time",
			travel:  civil.New(2026, 3, 2),
			now:     noon,
			kind:    KindOpen,
			text:    "Booking is open now!",
			canBook: true,
		},
		{
			name:    "inside window early morning",
			travel:  civil.New(2026, 2, 1),
			now:     morning,
			kind:    KindOpen,
			text:    "Booking is open now!",
			canBook: true,
		},
		{
			name:     "future",
			travel:   civil.New(2026, 3, 15),
			now:      noon,
			kind:     KindFuture,
			text:     "Booking opens on 14 January (Wednesday) at 8:00 AM",
			canExprt: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := r.Message(tt.travel, tt.now)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, tt.text, m.Text)
			assert.Equal(t, tt.canBook, m.CanBook)
			assert.Equal(t, tt.canExprt, m.CanExport)
			assert.Equal(t, r.GeneralOpenDate(tt.travel), m.OpenDate)
		})
	}
}

func TestMessageStatusMatchesClassify(t *testing.T) {
	r := DefaultRules()
	now := time.Date(2026, 1, 1, 6, 0, 0, 0, civil.IST)
	m := r.Message(civil.New(2026, 3, 2), now)
	assert.Equal(t, StatusOpen, m.Status)
	assert.Equal(t, KindOpensToday, m.Kind)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "You can book tickets for travel up to 2 March (Monday)",
		DefaultRules().Summary(civil.New(2026, 1, 1)))
}
