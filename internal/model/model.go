// Package model holds the view types produced by the calendar renderer and
// consumed by the web and CLI layers.
package model

import (
	"railbook/internal/booking"
	"railbook/internal/civil"
	"railbook/internal/holiday"
)

// DayStatus is the per-cell classification. It extends booking.Status with
// tatkal-window for the travel date whose Tatkal window opens today.
type DayStatus string

const (
	DayPast         DayStatus = "past"
	DayTatkalWindow DayStatus = "tatkal-window"
	DayOpen         DayStatus = "open"
	DayFuture       DayStatus = "future"
)

// FromBooking converts a date-granularity booking status.
func FromBooking(s booking.Status) DayStatus {
	return DayStatus(s)
}

// DayCell is one rendered calendar day. Empty cells pad the grid and carry no
// date. Cells are built once per render and never modified afterwards.
type DayCell struct {
	Empty bool `json:"empty,omitempty"`

	Date     civil.Date     `json:"date,omitzero"`
	Day      int            `json:"day,omitempty"`
	Weekday  int            `json:"weekday"` // Sunday = 0
	Status   DayStatus      `json:"status,omitempty"`
	Holiday  *holiday.Entry `json:"holiday,omitempty"`
	Today    bool           `json:"today,omitempty"`
	Disabled bool           `json:"disabled,omitempty"`
}

// HolidayLabel is "{name} ({category label})", or "" without a holiday.
func (c DayCell) HolidayLabel() string {
	if c.Holiday == nil {
		return ""
	}
	return c.Holiday.Name + " (" + c.Holiday.Category.Label() + ")"
}

// Month is a 7-column grid block. len(Cells) is always a multiple of 7.
type Month struct {
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Name    string    `json:"name"` // "March 2026"
	Leading int       `json:"leading"`
	Cells   []DayCell `json:"cells"`
}

// Weeks splits the grid into rows of seven.
func (m Month) Weeks() [][]DayCell {
	rows := make([][]DayCell, 0, len(m.Cells)/7)
	for i := 0; i+7 <= len(m.Cells); i += 7 {
		rows = append(rows, m.Cells[i:i+7])
	}
	return rows
}

// Counts tallies non-empty cells by status.
func (m Month) Counts() map[DayStatus]int {
	out := make(map[DayStatus]int, 4)
	for _, c := range m.Cells {
		if !c.Empty {
			out[c.Status]++
		}
	}
	return out
}

// Popup is the on-demand information box for one overview day.
type Popup struct {
	Date    civil.Date `json:"date"`
	Holiday string     `json:"holiday,omitempty"`
	Kind    DayStatus  `json:"kind"`
	Title   string     `json:"title"`
	Detail  string     `json:"detail,omitempty"`
}

// Calendar is a rendered range with its headline.
type Calendar struct {
	Mode    string     `json:"mode"`
	From    civil.Date `json:"from"`
	To      civil.Date `json:"to"`
	Today   civil.Date `json:"today"`
	Summary string     `json:"summary,omitempty"`
	Months  []Month    `json:"months"`
}
