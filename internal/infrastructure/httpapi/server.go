// Package httpapi exposes a running shell session over HTTP for inspection and
// scripted navigation, plus a websocket stream of session events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"NewsShell/internal/domain"
	"NewsShell/internal/events"
	"NewsShell/internal/infrastructure/pagemeta"
	"NewsShell/internal/pool"
	"NewsShell/internal/ports"
)

var errNoEvents = errors.New("event stream disabled")

// Shell is the session surface the API drives.
type Shell interface {
	Decide(ev domain.NavigationEvent) domain.Decision
	Navigate(ctx context.Context, site domain.CallSite, ev domain.NavigationEvent) (domain.Decision, error)
	Classify(rawURL string) domain.Classification
	Resolve(rawURL string) domain.BrowserTarget
	Tabs(ctx context.Context) ([]domain.SurfaceState, int, error)
	Select(ctx context.Context, index int) error
	Retry(ctx context.Context, index int) error
	MemoryPressure(ctx context.Context) (int, error)
}

// EventSource feeds the websocket stream.
type EventSource interface {
	Subscribe(topic string, handler func(events.Event)) func()
}

// MetaFetcher reads page metadata.
type MetaFetcher interface {
	Fetch(ctx context.Context, pageURL string) (pagemeta.Meta, error)
}

// Deps wires the server. Journal, Events and Meta are optional.
type Deps struct {
	Shell   Shell
	Journal ports.Journal
	Events  EventSource
	Meta    MetaFetcher
	Logger  *slog.Logger
}

// Server serves the API.
type Server struct {
	shell   Shell
	journal ports.Journal
	events  EventSource
	meta    MetaFetcher
	logger  *slog.Logger
	router  chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{
		shell:   deps.Shell,
		journal: deps.Journal,
		events:  deps.Events,
		meta:    deps.Meta,
		logger:  deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/classify", s.handleClassify)
		r.Get("/resolve", s.handleResolve)
		r.Post("/decide", s.handleDecide)
		r.Post("/navigate", s.handleNavigate)
		r.Get("/tabs", s.handleTabs)
		r.Post("/tabs/{index}/activate", s.handleActivate)
		r.Post("/tabs/{index}/retry", s.handleRetry)
		r.Post("/memory-pressure", s.handleMemoryPressure)
		r.Get("/journal", s.handleJournal)
		r.Get("/pagemeta", s.handlePageMeta)
	})
	r.Get("/ws/events", s.handleEvents)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.info("http api listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	}
}

// navigationRequest is the JSON form of a navigation event.
type navigationRequest struct {
	Site          domain.CallSite  `json:"site"`
	Surface       domain.SurfaceID `json:"surface"`
	URL           string           `json:"url"`
	CurrentURL    string           `json:"currentUrl"`
	UserInitiated bool             `json:"userInitiated"`
	SameURL       bool             `json:"sameUrl"`
	Subframe      bool             `json:"subframe"`
	AppHeaders    bool             `json:"appHeaders"`
}

func (n navigationRequest) event() domain.NavigationEvent {
	return domain.NavigationEvent{
		SourceSurface:      n.Surface,
		RequestedURL:       n.URL,
		CurrentURL:         n.CurrentURL,
		IsUserInitiated:    n.UserInitiated,
		IsSameURLAsCurrent: n.SameURL,
		IsSubframe:         n.Subframe,
		CarriesAppHeaders:  n.AppHeaders,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	c := s.shell.Classify(rawURL)
	resp := map[string]any{"url": rawURL, "classification": c}
	if c.Err != nil {
		resp["error"] = c.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": rawURL, "target": s.shell.Resolve(rawURL)})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNavigation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.shell.Decide(req.event()))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNavigation(w, r)
	if !ok {
		return
	}
	site := req.Site
	if site == "" {
		site = domain.CallSiteDetail
	}
	decision, err := s.shell.Navigate(r.Context(), site, req.event())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	states, active, err := s.shell.Tabs(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "surfaces": states})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.withIndex(w, r, s.shell.Select)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.withIndex(w, r, s.shell.Retry)
}

func (s *Server) withIndex(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("index must be an integer"))
		return
	}
	if err := fn(r.Context(), index); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemoryPressure(w http.ResponseWriter, r *http.Request) {
	sent, err := s.shell.MemoryPressure(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"surfaces": sent})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, errors.New("journal disabled"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, 500)
	}
	records, err := s.journal.RecentDecisions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []domain.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePageMeta(w http.ResponseWriter, r *http.Request) {
	if s.meta == nil {
		writeError(w, http.StatusNotFound, errors.New("page metadata disabled"))
		return
	}
	rawURL, ok := requireURL(w, r)
	if !ok {
		return
	}
	meta, err := s.meta.Fetch(r.Context(), rawURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.logger != nil {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}
	})
}

func (s *Server) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func requireURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return "", false
	}
	return rawURL, true
}

func decodeNavigation(w http.ResponseWriter, r *http.Request) (navigationRequest, bool) {
	var req navigationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return req, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return req, false
	}
	return req, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pool.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, pool.ErrClosed), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
