// Package api serves the web dashboard: the HTML page, the JSON endpoints
// for ratios and analyses, and the websocket that streams the narrative.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/seenimoa/ratiodash/internal/agent"
	"github.com/seenimoa/ratiodash/internal/config"
	"github.com/seenimoa/ratiodash/internal/datasource"
	"github.com/seenimoa/ratiodash/pkg/models"
	"github.com/seenimoa/ratiodash/pkg/utils"
	"github.com/seenimoa/ratiodash/web"
)

// Server is the dashboard HTTP server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	analyst *agent.Analyst
	log     zerolog.Logger
	pages   *template.Template
	version string
	now     func() time.Time
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, analyst *agent.Analyst, log zerolog.Logger, version string) (*Server, error) {
	pages, err := template.ParseFS(web.TemplateFS(), "*.html")
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:     cfg,
		analyst: analyst,
		log:     log,
		pages:   pages,
		version: version,
		now:     time.Now,
	}
	s.router = s.buildRouter()
	return s, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT or SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("dashboard listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins(),
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// The stream outlives the request timeout: narratives from a local
	// model can take minutes.
	r.Get("/ws/analysis", s.handleAnalysisStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout()))

		r.Get("/", s.handleDashboard)
		r.Get("/health", s.handleHealth)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Get("/ratios/{ticker}", s.handleRatios)
			r.Get("/inputs/{ticker}", s.handleInputs)
			r.Get("/analysis/{ticker}", s.handleAnalysis)
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

func (s *Server) origins() []string {
	if len(s.cfg.API.CORSOrigins) > 0 {
		return s.cfg.API.CORSOrigins
	}
	return []string{"*"}
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.API.RequestTimeout > 0 {
		return config.Seconds(s.cfg.API.RequestTimeout)
	}
	return 60 * time.Second
}

// requestIDField adds chi's request ID to the request logger.
func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// ============================================================
// Response types
// ============================================================

// APIResponse is the JSON envelope of the service endpoints.
// Ticker endpoints answer with the bare result or error mapping instead.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RatioRow is one table row of the dashboard.
type RatioRow struct {
	Label   string
	Display string
	Status  string
}

// DashboardPage is the template model of the dashboard.
type DashboardPage struct {
	Ticker    string
	Error     string
	Ratios    []RatioRow
	Streaming bool
	Frequency string
	Model     string
	Version   string
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "ok",
			"version":   s.version,
			"model":     s.modelLabel(),
			"frequency": s.cfg.Data.Frequency,
			"time":      s.now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleRatios(w http.ResponseWriter, r *http.Request) {
	set, err := s.analyst.Ratios(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set.Map())
}

func (s *Server) handleInputs(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.analyst.Inputs(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inputs)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.analyst.Analyze(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page := DashboardPage{
		Frequency: s.cfg.Data.Frequency,
		Model:     s.modelLabel(),
		Version:   s.version,
	}
	status := http.StatusOK

	if raw := r.URL.Query().Get("ticker"); strings.TrimSpace(raw) != "" {
		page.Ticker = utils.NormalizeTicker(raw)
		set, err := s.analyst.Ratios(r.Context(), raw)
		if err != nil {
			page.Error = err.Error()
			status = statusFor(err)
		} else {
			page.Ratios = ratioRows(set)
			page.Streaming = s.analyst.Advisor() != nil
		}
	}

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "dashboard.html", page); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render dashboard")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) modelLabel() string {
	if adv := s.analyst.Advisor(); adv != nil {
		return adv.Model()
	}
	return "LLM disabled"
}

func ratioRows(set models.RatioSet) []RatioRow {
	ratios := set.Ratios()
	rows := make([]RatioRow, len(ratios))
	for i, r := range ratios {
		rows[i] = RatioRow{Label: r.Label, Display: r.String(), Status: string(r.Status)}
	}
	return rows
}

// statusFor maps a retrieval error to an HTTP status.
func statusFor(err error) int {
	switch datasource.ErrorKind(err) {
	case "empty_ticker":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "transport":
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeRetrievalError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), agent.ErrorMapping(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
