package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redline-tools/redline/internal/config"
	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/render"
	"github.com/redline-tools/redline/internal/verify"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	cfg         config.ServerConfig
	engineCfg   engine.Config
	renderCfg   render.Config
	checker     verify.Checker
	sessions    *SessionStore
	rateLimiter *RateLimiter
	progress    *ProgressHub
}

// Config holds everything NewServer needs.
type Config struct {
	Server   config.ServerConfig
	Engine   engine.Config
	Render   render.Config
	Verifier verify.Config
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type UploadResponse struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Filename  string `json:"filename"`
	Pages     int    `json:"pages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewServer creates a comparison server. A verifier is built only when an
// API key is configured; without one the annotation endpoint reports the
// missing configuration per request.
func NewServer(cfg Config) (*Server, error) {
	sessions, err := NewSessionStore(cfg.Server)
	if err != nil {
		return nil, err
	}

	var checker verify.Checker
	if c, cerr := verify.NewLLMChecker(cfg.Verifier); cerr == nil {
		checker = c
	} else {
		slog.Warn("annotation verification disabled", "reason", cerr)
	}

	var limiter *RateLimiter
	if cfg.Server.RateLimitPerMin > 0 {
		limiter = NewRateLimiter(cfg.Server.RateLimitPerMin, 0, 0, 0)
	}

	return &Server{
		cfg:         cfg.Server,
		engineCfg:   cfg.Engine,
		renderCfg:   cfg.Render,
		checker:     checker,
		sessions:    sessions,
		rateLimiter: limiter,
		progress:    NewProgressHub(),
	}, nil
}

// Close releases server resources, removing all session files.
func (s *Server) Close() error {
	return s.sessions.Close()
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/api/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("DELETE /api/session/{id}", s.corsMiddleware(s.sessionDeleteHandler))
	mux.HandleFunc("POST /api/session/{id}/ready-for-cleanup", s.corsMiddleware(s.sessionCleanupHandler))
	mux.HandleFunc("/api/upload/ref", s.corsMiddleware(s.rateLimitMiddleware(s.uploadHandler("ref"))))
	mux.HandleFunc("/api/upload/final", s.corsMiddleware(s.rateLimitMiddleware(s.uploadHandler("final"))))
	mux.HandleFunc("/api/compare/images", s.corsMiddleware(s.rateLimitMiddleware(s.compareImagesHandler)))
	mux.HandleFunc("/api/compare/annotations", s.corsMiddleware(s.rateLimitMiddleware(s.compareAnnotationsHandler)))
	mux.HandleFunc("/api/compare/words", s.corsMiddleware(s.rateLimitMiddleware(s.compareWordsHandler)))
	mux.HandleFunc("/api/download", s.corsMiddleware(s.downloadHandler))
	mux.HandleFunc("/ws/progress", s.progressHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
