package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"railbook/internal/booking"
	"railbook/internal/civil"
	"railbook/internal/countdown"
	appLog "railbook/internal/log"
	"railbook/internal/model"
	"railbook/internal/preference"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type pages struct {
	tmpl *template.Template
}

func loadPages() (*pages, error) {
	funcs := template.FuncMap{
		"long":     func(d civil.Date) string { return d.Format(booking.LongLayout) },
		"short":    func(d civil.Date) string { return d.Format(booking.ShortLayout) },
		"iso":      func(d civil.Date) string { return d.String() },
		"weekdays": func() []string { return weekdayHeaders },
	}
	t, err := template.New("pages").Funcs(funcs).ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	return &pages{tmpl: t}, nil
}

func (p *pages) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// indexData feeds templates/index.html. The overview calendar is not part of
// it; the page fetches /fragment/overview once the critical content is up.
type indexData struct {
	Product   string
	SiteURL   string
	Theme     preference.Theme
	Today     civil.Date
	Summary   string
	OpensAt   string
	Countdown countdown.Snapshot
	Picker    model.Calendar
	Selected  *bookingView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	visitor := visitorFrom(r)
	data := indexData{
		Product:   s.cfg.ProductName,
		SiteURL:   s.cfg.SiteURL,
		Theme:     s.ctrl.Theme(r.Context(), visitor),
		Today:     s.ctrl.Today(),
		Summary:   s.ctrl.Summary(),
		OpensAt:   s.ctrl.Rules().OpenTimeLabel(),
		Countdown: s.ctrl.Countdown(),
		Picker:    s.ctrl.Picker(),
	}
	if d, ok := s.ctrl.Selected(visitor); ok {
		data.Selected = newBookingView(s.ctrl.Share(d))
	}

	body, err := s.pages.render("index.html", data)
	if err != nil {
		appLog.Error("web: render index failed", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	writeHTML(w, body)
}

// handleOverviewFragment serves the deferred overview calendar markup.
func (s *Server) handleOverviewFragment(w http.ResponseWriter, _ *http.Request) {
	body, err := s.fragments.get(s.ctrl.Today(), func() ([]byte, error) {
		return s.pages.render("overview", s.ctrl.Overview())
	})
	if err != nil {
		appLog.Error("web: render overview fragment failed", err)
		http.Error(w, "failed to render overview", http.StatusInternalServerError)
		return
	}
	writeHTML(w, body)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
