// Package api provides the HTTP REST API of the reconai server.
// It wires the command runner, result cache, tool adapters, scan
// orchestrator and report generator behind a gorilla/mux router.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/anstrom/reconai/internal/api/handlers"
	"github.com/anstrom/reconai/internal/api/middleware"
	"github.com/anstrom/reconai/internal/cache"
	"github.com/anstrom/reconai/internal/config"
	"github.com/anstrom/reconai/internal/jobs"
	"github.com/anstrom/reconai/internal/logging"
	"github.com/anstrom/reconai/internal/metrics"
	"github.com/anstrom/reconai/internal/report"
	"github.com/anstrom/reconai/internal/runner"
	"github.com/anstrom/reconai/internal/tools"
)

const defaultShutdownTimeout = 30 * time.Second

// Server represents the API server.
type Server struct {
	httpServer   *http.Server
	router       *mux.Router
	config       *config.Config
	logger       *slog.Logger
	metrics      *metrics.PrometheusMetrics
	cache        *cache.Cache
	toolkit      *tools.Toolkit
	registry     *jobs.Registry
	orchestrator *jobs.Orchestrator
	handlers     *handlers.HandlerManager
}

type serverOptions struct {
	logger       *slog.Logger
	runner       runner.Runner
	metrics      *metrics.PrometheusMetrics
	availability handlers.AvailabilityFunc
}

// Option configures a Server.
type Option func(*serverOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) { o.logger = logger }
}

// WithRunner replaces the process runner the tool adapters execute through.
func WithRunner(r runner.Runner) Option {
	return func(o *serverOptions) { o.runner = r }
}

// WithMetrics sets the Prometheus collectors. Each Server otherwise gets
// its own registry.
func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithAvailability replaces the executable lookup behind /health.
func WithAvailability(fn handlers.AvailabilityFunc) Option {
	return func(o *serverOptions) { o.availability = fn }
}

// New creates a new API server instance.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	o := &serverOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Default().Logger
	}
	if o.metrics == nil {
		o.metrics = metrics.NewPrometheusMetrics()
	}
	if o.runner == nil {
		o.runner = runner.New(runner.WithLogger(o.logger), runner.WithMetrics(o.metrics))
	}
	if o.availability == nil {
		toolsCfg := cfg.Tools
		o.availability = func() map[tools.Name]bool { return tools.Availability(toolsCfg) }
	}

	logger := logging.WithComponent(o.logger, "api")

	resultCache := cache.New(cfg.Cache.TTL, cache.WithLogger(o.logger), cache.WithMetrics(o.metrics))
	toolkit := tools.NewToolkit(o.runner, resultCache, cfg.Tools, o.logger)
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(toolkit, registry, cfg.Scan,
		jobs.WithLogger(o.logger),
		jobs.WithMetrics(o.metrics))
	reports := report.NewGenerator(cfg.Reports, report.WithLogger(o.logger))

	s := &Server{
		router:       mux.NewRouter(),
		config:       cfg,
		logger:       logger,
		metrics:      o.metrics,
		cache:        resultCache,
		toolkit:      toolkit,
		registry:     registry,
		orchestrator: orchestrator,
	}
	s.handlers = handlers.New(handlers.Dependencies{
		Tools:          toolkit,
		Scans:          orchestrator,
		Jobs:           registry,
		Reports:        reports,
		Cache:          resultCache,
		Availability:   o.availability,
		MaxRequestSize: cfg.Server.MaxRequestSize,
	}, o.logger)

	s.setupRoutes()
	s.setupMiddleware()

	var handler http.Handler = s.router
	if cfg.Server.CORS.Enabled {
		// Wraps the router rather than joining router.Use so that
		// preflight requests for unregistered OPTIONS routes are answered.
		handler = middleware.CORS(cfg.Server.CORS.AllowedOrigins)(handler)
	}

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return s, nil
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout,
		"write_timeout", s.httpServer.WriteTimeout)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop drains HTTP connections and then waits for in-flight scan pipelines,
// both within the configured shutdown timeout.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.orchestrator.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("API server stopped successfully")
		return nil
	case <-ctx.Done():
		running := s.registry.Counts().Running
		s.logger.Warn("Shutdown timed out with scans still running", "running", running)
		return fmt.Errorf("shutdown timed out with %d scan(s) running", running)
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	toolRoutes := api.PathPrefix("/tools").Subrouter()
	toolRoutes.HandleFunc("/nmap", h.Tools.Nmap).Methods(http.MethodPost)
	toolRoutes.HandleFunc("/gobuster", h.Tools.Gobuster).Methods(http.MethodPost)
	toolRoutes.HandleFunc("/subfinder", h.Tools.Subfinder).Methods(http.MethodPost)
	toolRoutes.HandleFunc("/httpx", h.Tools.HTTPX).Methods(http.MethodPost)
	toolRoutes.HandleFunc("/dns", h.Tools.DNS).Methods(http.MethodPost)
	toolRoutes.HandleFunc("/whois", h.Tools.Whois).Methods(http.MethodPost)

	api.HandleFunc("/scan/comprehensive", h.Scan.StartComprehensive).Methods(http.MethodPost)
	api.HandleFunc("/scan/status/{id}", h.Scan.Status).Methods(http.MethodGet)
	api.HandleFunc("/scan/results/{id}", h.Scan.Results).Methods(http.MethodGet)
	api.HandleFunc("/scans", h.Scan.List).Methods(http.MethodGet)

	api.HandleFunc("/report/generate", h.Report.Generate).Methods(http.MethodPost)

	api.HandleFunc("/cache/stats", h.Cache.Stats).Methods(http.MethodGet)
	api.HandleFunc("/cache/clear", h.Cache.Clear).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)
}

// setupMiddleware configures middleware for matched routes. Recovery sits
// inside RequestID so panics are answered with the request's id.
func (s *Server) setupMiddleware() {
	s.router.Use(
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Recovery(s.logger),
		middleware.Metrics(s.metrics),
		middleware.ContentType(),
	)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "endpoint not found")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handlers.ErrorResponse{
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
	s.logger.Debug("Unrouted request", "method", r.Method, "path", r.URL.Path, "status", status)
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.httpServer.Addr
}

// Orchestrator returns the scan orchestrator.
func (s *Server) Orchestrator() *jobs.Orchestrator {
	return s.orchestrator
}
