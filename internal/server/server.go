package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/hodorprobe/internal/jsonutil"
	"github.com/hazz-dev/hodorprobe/internal/storage"
)

// ServerStore defines the storage queries the server needs.
type ServerStore interface {
	AllLatest(ctx context.Context) ([]storage.Probe, error)
	LatestResult(ctx context.Context, path string) (*storage.Probe, error)
	LatestRun(ctx context.Context) ([]storage.Probe, error)
	PathHistory(ctx context.Context, path string, limit, offset int) ([]storage.Probe, int, error)
	UptimePercent(ctx context.Context, path string, last int) (float64, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store   ServerStore
	baseURL string
	paths   []string
	router  chi.Router
	logger  *slog.Logger
}

// New creates a new Server for the probed gateway at baseURL and registers all routes.
func New(store ServerStore, baseURL string, paths []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   store,
		baseURL: baseURL,
		paths:   paths,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/probes", s.handleListProbes)
	r.Get("/api/probes/detail", s.handleGetProbe)
	r.Get("/api/probes/history", s.handleGetProbeHistory)
	r.Get("/api/runs/latest", s.handleLatestRun)
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	jsonutil.Encode(w, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	jsonutil.Encode(w, envelope{Error: msg})
}

// --- Path helpers ---

func (s *Server) configured(path string) bool {
	for _, p := range s.paths {
		if p == path {
			return true
		}
	}
	return false
}

// probePath reads the ?path= query parameter and writes a 4xx when it is
// missing or not a configured probe path.
func (s *Server) probePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path parameter is required")
		return "", false
	}
	if !s.configured(path) {
		writeError(w, http.StatusNotFound, "probe path not found")
		return "", false
	}
	return path, true
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jsonutil.Encode(w, map[string]string{"status": "ok"})
}

type probeDetail struct {
	Path        string     `json:"path"`
	URL         string     `json:"url"`
	Status      string     `json:"status"`
	StatusCode  int        `json:"status_code"`
	ResponseMs  int64      `json:"response_ms"`
	Preview     string     `json:"preview"`
	Error       string     `json:"error"`
	UptimePct   float64    `json:"uptime_percent"`
	LastChecked *time.Time `json:"last_checked"`
}

func (s *Server) detail(path string, latest *storage.Probe) probeDetail {
	d := probeDetail{
		Path:   path,
		URL:    s.baseURL + path,
		Status: "unknown",
	}
	if latest != nil {
		d.Status = latest.Status
		d.StatusCode = latest.StatusCode
		d.ResponseMs = latest.ResponseMs
		d.Preview = latest.Preview
		d.Error = latest.Error
		t := latest.CheckedAt
		d.LastChecked = &t
	}
	return d
}

func (s *Server) handleListProbes(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.AllLatest(r.Context())
	if err != nil {
		s.logger.Error("AllLatest", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	byPath := make(map[string]storage.Probe, len(latest))
	for _, p := range latest {
		byPath[p.Path] = p
	}

	details := make([]probeDetail, 0, len(s.paths))
	for _, path := range s.paths {
		var d probeDetail
		if p, ok := byPath[path]; ok {
			d = s.detail(path, &p)
			pct, _ := s.store.UptimePercent(r.Context(), path, 100)
			d.UptimePct = pct
		} else {
			d = s.detail(path, nil)
		}
		details = append(details, d)
	}

	writeJSON(w, http.StatusOK, details)
}

type probeDetailResponse struct {
	probeDetail
	RecentResults []storage.Probe `json:"recent_results"`
}

func (s *Server) handleGetProbe(w http.ResponseWriter, r *http.Request) {
	path, ok := s.probePath(w, r)
	if !ok {
		return
	}

	latest, err := s.store.LatestResult(r.Context(), path)
	if err != nil {
		s.logger.Error("LatestResult", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	history, _, err := s.store.PathHistory(r.Context(), path, 10, 0)
	if err != nil {
		s.logger.Error("PathHistory", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	d := s.detail(path, latest)
	d.UptimePct, _ = s.store.UptimePercent(r.Context(), path, 100)

	writeJSON(w, http.StatusOK, probeDetailResponse{
		probeDetail:   d,
		RecentResults: history,
	})
}

type historyResponse struct {
	Results []storage.Probe `json:"results"`
	Total   int             `json:"total"`
}

func (s *Server) handleGetProbeHistory(w http.ResponseWriter, r *http.Request) {
	path, ok := s.probePath(w, r)
	if !ok {
		return
	}

	const maxLimit = 1000

	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	results, total, err := s.store.PathHistory(r.Context(), path, limit, offset)
	if err != nil {
		s.logger.Error("PathHistory", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if results == nil {
		results = []storage.Probe{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Results: results,
		Total:   total,
	})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.LatestRun(r.Context())
	if err != nil {
		s.logger.Error("LatestRun", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if results == nil {
		results = []storage.Probe{}
	}
	writeJSON(w, http.StatusOK, results)
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
