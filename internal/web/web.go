package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"railbook/internal/civil"
	"railbook/internal/config"
	"railbook/internal/controller"
	appLog "railbook/internal/log"
)

// VisitorCookie carries the anonymous visitor id that keys the theme
// preference and the selected travel date.
const VisitorCookie = "railbook_visitor"

// fragmentTTL bounds how long a rendered overview fragment or chart is
// reused. Both only change when the IST date changes.
const fragmentTTL = 30 * time.Second

// Server serves the booking page, its deferred fragments and the JSON API.
type Server struct {
	cfg    *config.Config
	ctrl   *controller.Controller
	router *mux.Router
	pages  *pages

	// Rendered overview fragment and chart, keyed by the date they were
	// rendered for, to avoid rebuilding months of cells on every request.
	fragments *renderCache
	charts    *renderCache
}

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server around ctrl.
func NewServer(cfg *config.Config, ctrl *controller.Controller) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		ctrl:      ctrl,
		router:    mux.NewRouter(),
		pages:     p,
		fragments: newRenderCache(fragmentTTL),
		charts:    newRenderCache(fragmentTTL),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than lock everyone out.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="RailBook", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(visitorMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/fragment/overview", s.handleOverviewFragment).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/today", s.handleToday).Methods(http.MethodGet)
	api.HandleFunc("/booking", s.handleBooking).Methods(http.MethodGet)
	api.HandleFunc("/countdown", s.handleCountdown).Methods(http.MethodGet)
	api.HandleFunc("/calendar/overview", s.handleCalendarOverview).Methods(http.MethodGet)
	api.HandleFunc("/calendar/picker", s.handleCalendarPicker).Methods(http.MethodGet)
	api.HandleFunc("/calendar/popup", s.handlePopup).Methods(http.MethodGet)
	api.HandleFunc("/reminder.ics", s.handleReminder).Methods(http.MethodGet)
	api.HandleFunc("/share", s.handleShare).Methods(http.MethodGet)
	api.HandleFunc("/chart/overview", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/theme", s.handleGetTheme).Methods(http.MethodGet)
	api.HandleFunc("/theme", s.handleSetTheme).Methods(http.MethodPost)
	api.HandleFunc("/event", s.handleEvent).Methods(http.MethodPost)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.PathPrefix("/static/").Handler(s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded script and stylesheet under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type visitorKey struct{}

// visitorMiddleware makes sure every request carries a visitor id, issuing a
// new uuid cookie when the browser has none.
func visitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(VisitorCookie); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey{}, id)))
	})
}

func visitorFrom(r *http.Request) string {
	id, _ := r.Context().Value(visitorKey{}).(string)
	return id
}

// renderCache holds one rendered body for the date it was built for.
type renderCache struct {
	ttl time.Duration

	mu        sync.RWMutex
	day       civil.Date
	body      []byte
	updatedAt time.Time
}

func newRenderCache(ttl time.Duration) *renderCache {
	return &renderCache{ttl: ttl}
}

// get returns the cached body for day, building it on a miss.
func (c *renderCache) get(day civil.Date, build func() ([]byte, error)) ([]byte, error) {
	now := time.Now()
	c.mu.RLock()
	if c.body != nil && c.day == day && now.Sub(c.updatedAt) < c.ttl {
		body := c.body
		c.mu.RUnlock()
		return body, nil
	}
	c.mu.RUnlock()

	body, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.day = day
	c.body = body
	c.updatedAt = time.Now()
	c.mu.Unlock()
	return body, nil
}

// dateParam parses the required ?date=YYYY-MM-DD query parameter.
func dateParam(r *http.Request) (civil.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return civil.Date{}, errors.New("date is required")
	}
	return civil.Parse(raw)
}

// statusFor maps controller and parse errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, civil.ErrInvalidDate),
		errors.Is(err, controller.ErrUnknownEvent),
		errors.Is(err, controller.ErrNotSelectable),
		errors.Is(err, controller.ErrMissingVisitor):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrNoSelection),
		errors.Is(err, controller.ErrNotExportable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
