package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/radio-control/nodepoll/internal/auth"
	"github.com/radio-control/nodepoll/internal/config"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server represents the HTTP API server.
type Server struct {
	mu             sync.Mutex
	httpServer     *http.Server
	status         StatusSource
	telemetryHub   TelemetryPort
	exchanges      ExchangeSource
	authMiddleware *auth.Middleware
	startTime      time.Time
	config         config.APIConfig
}

// NewServer creates a new API server. exchanges may be nil when the journal
// is disabled.
func NewServer(status StatusSource, telemetryHub TelemetryPort, exchanges ExchangeSource, cfg config.APIConfig) *Server {
	return &Server{
		status:       status,
		telemetryHub: telemetryHub,
		exchanges:    exchanges,
		startTime:    time.Now(),
		config:       cfg,
	}
}

// NewServerWithAuth creates a new API server with authentication middleware.
func NewServerWithAuth(status StatusSource, telemetryHub TelemetryPort, exchanges ExchangeSource, authMiddleware *auth.Middleware, cfg config.APIConfig) *Server {
	s := NewServer(status, telemetryHub, exchanges, cfg)
	s.authMiddleware = authMiddleware
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout.Std(),
		WriteTimeout: s.config.WriteTimeout.Std(),
		IdleTimeout:  s.config.IdleTimeout.Std(),
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
