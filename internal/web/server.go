// Package web exposes the HTTP API: connection status, bulk send submission,
// and run report retrieval.
package web

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/outflow-sh/outflow/internal/adapters/fs"
	"github.com/outflow-sh/outflow/internal/cliconfig"
	"github.com/outflow-sh/outflow/internal/contact"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/internal/session"
	"github.com/outflow-sh/outflow/pkg/log"
)

// StatusFunc reports the current connection status.
type StatusFunc func() session.Status

// Config wires the server's collaborators.
type Config struct {
	Status   StatusFunc
	Chat     ports.Sender
	Mail     ports.Sender // nil when SMTP is not configured
	Resolver *contact.Resolver
	Runtime  *cliconfig.Runtime
	Reports  *fs.ReportStore
	Logger   log.Logger

	// RequestTimeout bounds request handling; bulk runs can legitimately
	// take a long time.
	RequestTimeout time.Duration
}

// Server is the HTTP API front end.
type Server struct {
	cfg    Config
	log    log.Logger
	router chi.Router

	// busy guards the single-run-at-a-time rule across chat and mail.
	busy atomic.Bool
}

// New creates the server and mounts its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Minute
	}
	s := &Server{cfg: cfg, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/last-run", s.handleLastRun)
		r.Post("/send-messages", s.handleSendMessages)
		r.Post("/send-test-message", s.handleSendTest)
		r.Post("/email/send-messages", s.handleSendEmails)
	})

	s.router = r
	return s
}

// Handler returns the mounted route tree.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", log.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
