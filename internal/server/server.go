// Package server exposes the session store over HTTP. It is a stateless
// façade: request validation and credential checks happen here, all session
// state lives in the store.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudclip-dev/cloudclip/pkg/config"
	"github.com/cloudclip-dev/cloudclip/pkg/observability"
	"github.com/cloudclip-dev/cloudclip/pkg/session"
)

// Server is the clipboard API server.
type Server struct {
	cfg        *config.Config
	store      session.Store
	health     *observability.HealthChecker
	httpServer *http.Server
	janitor    *cron.Cron
	limiter    *rateLimiter
}

// New creates a server around the given store. health may be nil when there
// is no backend worth probing; the checker then reports healthy with no
// checks.
func New(cfg *config.Config, store session.Store, health *observability.HealthChecker) *Server {
	if health == nil {
		health = observability.NewHealthChecker()
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		health:  health,
		limiter: newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}
}

// Handler builds the full route table with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated surface. The dashboard and its end control are
	// credential-free like the rest of the admin page.
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("POST /admin/session/{id}/end", s.handleAdminEnd)
	mux.HandleFunc("GET /health", s.health.Handler())
	mux.HandleFunc("GET /health/live", observability.LivenessHandler())
	mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", observability.MetricsHandler())

	// Session API, bearer-token protected
	mux.Handle("POST /session/start", s.authenticated(s.handleStartSession))
	mux.Handle("POST /session/{id}/clipboard", s.authenticated(s.handleAddItem))
	mux.Handle("GET /session/{id}/clipboard/latest", s.authenticated(s.handleLatest))
	mux.Handle("GET /session/{id}/clipboard/history", s.authenticated(s.handleHistory))
	mux.Handle("DELETE /session/{id}/end", s.authenticated(s.handleEndSession))
	mux.Handle("GET /sessions/active", s.authenticated(s.handleActiveSessions))

	return s.withRequestID(s.withRateLimit(s.withMetrics(mux)))
}

// Start runs the HTTP server and, if configured, the scheduled expiry
// janitor. It blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	if s.cfg.SweepSchedule != "" {
		if err := s.startJanitor(); err != nil {
			return err
		}
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and the janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.janitor != nil {
		s.janitor.Stop()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// startJanitor schedules a periodic sweep. Lazy on-access sweeping remains
// the contract; this only keeps idle deployments from holding dead sessions
// until the next request.
func (s *Server) startJanitor() error {
	s.janitor = cron.New()
	_, err := s.janitor.AddFunc(s.cfg.SweepSchedule, func() {
		removed, err := s.store.SweepExpired(context.Background())
		if err != nil {
			log.Printf("scheduled sweep failed: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("scheduled sweep removed %d expired sessions", removed)
			observability.RecordSessionsSwept(removed)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.SweepSchedule, err)
	}
	s.janitor.Start()
	return nil
}
