package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"railbook/internal/booking"
	"railbook/internal/chart"
	"railbook/internal/civil"
	"railbook/internal/controller"
	"railbook/internal/ics"
	appLog "railbook/internal/log"
	"railbook/internal/preference"
	"railbook/internal/share"
)

// todayResponse is the JSON shape for /api/today.
type todayResponse struct {
	Today     civil.Date `json:"today"`
	Now       time.Time  `json:"now"`
	TimeZone  string     `json:"timezone"`
	LastOpen  civil.Date `json:"last_open_date"`
	Summary   string     `json:"summary"`
	OpensAt   string     `json:"opens_at"`
	TatkalFor civil.Date `json:"tatkal_travel_date"`
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	rules := s.ctrl.Rules()
	now := s.ctrl.Now()
	today := civil.FromTime(now)
	writeJSON(w, http.StatusOK, todayResponse{
		Today:     today,
		Now:       now,
		TimeZone:  civil.ZoneName,
		LastOpen:  rules.LastOpenDate(today),
		Summary:   s.ctrl.Summary(),
		OpensAt:   rules.OpenTimeLabel(),
		TatkalFor: rules.TatkalTravelDateFor(now),
	})
}

// GET /api/booking?date=2026-03-15
func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Booking(d))
}

func (s *Server) handleCountdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Countdown())
}

func (s *Server) handleCalendarOverview(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Overview())
}

func (s *Server) handleCalendarPicker(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Picker())
}

// GET /api/calendar/popup?date=2026-10-24
func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Popup(d))
}

// GET /api/reminder.ics?date=2026-03-15 downloads the booking reminder.
func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := s.ctrl.Reminder(d)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ics.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// GET /api/share?date=2026-03-15
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	d, err := dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Share(d))
}

// GET /api/chart/overview renders the per-month status chart as HTML.
func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	body, err := s.charts.get(s.ctrl.Today(), func() ([]byte, error) {
		var buf bytes.Buffer
		if err := chart.Render(&buf, s.ctrl.Overview()); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		appLog.Error("api chart: render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type themeRequest struct {
	// Theme is light or dark; empty toggles the stored value.
	Theme string `json:"theme"`
}

type themeResponse struct {
	Theme preference.Theme `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeResponse{Theme: s.ctrl.Theme(r.Context(), visitorFrom(r))})
}

// POST /api/theme {"theme":"dark"} sets the theme; an empty body toggles it.
func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	visitor := visitorFrom(r)
	if req.Theme == "" {
		res, err := s.ctrl.Dispatch(r.Context(), controller.Event{Kind: controller.EventToggleTheme, Visitor: visitor})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, themeResponse{Theme: res.Theme})
		return
	}

	t, err := preference.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ctrl.SetTheme(r.Context(), visitor, t); err != nil {
		appLog.Error("api theme: store failed", err, "visitor", visitor)
		writeError(w, statusFor(err), "failed to store theme")
		return
	}
	writeJSON(w, http.StatusOK, themeResponse{Theme: t})
}

// POST /api/event {"kind":"select","date":"2026-03-15"} routes a page
// interaction through the controller for the calling visitor.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev controller.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev.Visitor = visitorFrom(r)

	res, err := s.ctrl.Dispatch(r.Context(), ev)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			appLog.Error("api event failed", err, "kind", ev.Kind)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// bookingView is the pre-rendered verdict shown under the picker.
type bookingView struct {
	booking.Message
	Long    string
	BookURL string
}

func newBookingView(p share.Payload) *bookingView {
	return &bookingView{
		Message: p.Message,
		Long:    p.Message.Travel.Format(booking.LongLayout),
		BookURL: p.BookURL,
	}
}
