// Package httpapi is the thin HTTP transport over the Coordinator: a single
// POST /query endpoint, a service-key auth gate, and per-request deadline
// enforcement. It owns no business logic — every decision is delegated to
// coordinator.App and shaped back into the wire response here.
package httpapi

import (
	"net/http"
	"time"

	"nlsqld/coordinator"
	"nlsqld/logger"
)

// Config holds the transport-level settings that are independent of the
// Coordinator wiring.
type Config struct {
	ServiceAPIKey     string
	RequireServiceKey bool
	RequestDeadline   time.Duration
}

// Server is the HTTP front end. It satisfies http.Handler and is meant to
// be passed directly to http.Server or httptest.NewServer.
type Server struct {
	app    *coordinator.App
	cfg    Config
	logger *logger.Logger
	mux    *http.ServeMux
}

// New builds a Server wired to app. cfg.RequestDeadline falls back to 120s
// (the resource model's default) when zero.
func New(app *coordinator.App, cfg Config, log *logger.Logger) *Server {
	if cfg.RequestDeadline <= 0 {
		cfg.RequestDeadline = 120 * time.Second
	}

	s := &Server{app: app, cfg: cfg, logger: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/query", s.withRequestID(s.requireServiceKey(s.handleQuery)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Logf(format, args...)
	}
}
