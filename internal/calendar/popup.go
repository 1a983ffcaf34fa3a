package calendar

import (
	"railbook/internal/booking"
	"railbook/internal/civil"
	"railbook/internal/model"
)

// Popup builds the information box for d. It is computed on request, never
// stored with the grid.
func (r *Renderer) Popup(d, today civil.Date) model.Popup {
	cell := r.Cell(d, today)
	p := model.Popup{
		Date:    d,
		Holiday: cell.HolidayLabel(),
		Kind:    cell.Status,
	}

	open := r.Rules.GeneralOpenDate(d)
	switch cell.Status {
	case model.DayPast:
		p.Title = "Travel Date Passed"
	case model.DayOpen, model.DayTatkalWindow:
		p.Title = "Booking is Open"
		p.Detail = "Booking opened on " + open.Format(booking.ShortLayout)
	default:
		p.Title = "Booking opens on"
		p.Detail = open.Format(booking.LongLayout)
	}
	return p
}
