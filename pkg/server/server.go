package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/telemetry/health"
	"mercator-hq/ddsguard/pkg/telemetry/metrics"
)

// Server is the HTTP API in front of the evaluation engine.
type Server struct {
	config      *config.ServerConfig
	engine      *engine.Engine
	checker     *health.Checker
	collector   *metrics.Collector
	metricsPath string
	version     health.VersionInfo
	logger      *slog.Logger

	mu           sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	isRunning    bool
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithHealth sets the checker behind /health and /ready.
func WithHealth(checker *health.Checker) Option {
	return func(s *Server) {
		s.checker = checker
	}
}

// WithMetrics serves the collector's registry at path and records request
// metrics.
func WithMetrics(collector *metrics.Collector, path string) Option {
	return func(s *Server) {
		s.collector = collector
		s.metricsPath = path
	}
}

// WithVersion sets the build information served at /version.
func WithVersion(info health.VersionInfo) Option {
	return func(s *Server) {
		s.version = info
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for eng. Zero config values fall back to the
// configuration defaults.
func NewServer(cfg *config.ServerConfig, eng *engine.Engine, opts ...Option) *Server {
	if cfg == nil {
		cfg = &config.ServerConfig{}
	}
	s := &Server{
		config: cfg,
		engine: eng,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.checker == nil {
		s.checker = health.New(0)
	}
	if s.collector != nil && s.metricsPath == "" {
		s.metricsPath = config.DefaultPrometheusPath
	}
	if s.config.MaxBodyBytes <= 0 {
		s.config.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if s.config.ShutdownTimeout <= 0 {
		s.config.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully stops the server, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, httpServer := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("HTTP server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
