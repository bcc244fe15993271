// Package httpserver wires the pagesmith HTTP API onto a chi router and
// manages the listener lifecycle.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/server/handlers"
	smw "git.home.luguber.info/inful/pagesmith/internal/server/middleware"
)

// Server serves the generation API, health probes, metrics and run history.
type Server struct {
	cfg          *config.Config
	opts         Options
	logger       *slog.Logger
	errorAdapter *errors.HTTPErrorAdapter
	httpServer   *http.Server
	listener     net.Listener

	monitoringHandlers *handlers.MonitoringHandlers
	generateHandlers   *handlers.GenerateHandlers
	runsHandlers       *handlers.RunsHandlers
}

// New constructs the server. Call Start to begin serving.
func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:                cfg,
		opts:               opts,
		logger:             logger,
		errorAdapter:       errors.NewHTTPErrorAdapter(logger),
		monitoringHandlers: handlers.NewMonitoringHandlers(time.Now(), logger),
		generateHandlers:   handlers.NewGenerateHandlers(opts.Runner, cfg.Secret, opts.Recorder, logger),
	}
	if opts.Runs != nil {
		s.runsHandlers = handlers.NewRunsHandlers(opts.Runs, logger)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.CleanPath)
	r.Use(smw.Chain(s.logger, s.errorAdapter))

	r.Get("/", s.monitoringHandlers.HandleHealthCheck)
	r.Get("/healthz", s.monitoringHandlers.HandleHealthCheck)
	r.Post("/api-endpoint", s.generateHandlers.HandleGenerate)

	if s.cfg.Metrics.Enabled && s.opts.PrometheusHandler != nil {
		r.Handle("/metrics", s.opts.PrometheusHandler)
	}
	if s.runsHandlers != nil {
		r.Route("/api/runs", func(r chi.Router) {
			r.Get("/", s.runsHandlers.HandleList)
			r.Get("/{runID}", s.runsHandlers.HandleGet)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, r, errors.NewError(errors.CategoryNotFound, "route not found").
			WithContext("path", r.URL.Path).
			Build())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allowedMethods(r.URL.Path))
		s.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("invalid HTTP method").
			WithContext("method", r.Method).
			WithContext("path", r.URL.Path).
			Build())
	})
	return r
}

func allowedMethods(path string) string {
	if path == "/api-endpoint" {
		return http.MethodPost
	}
	return http.MethodGet
}

// Start binds the configured port and serves in the background. Binding
// errors are returned; serve errors after startup are logged.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("http startup failed: port %s: %w", s.cfg.Port, err)
	}
	return s.StartWithListener(ln)
}

// StartWithListener serves on a pre-bound listener.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.listener = ln
	// Generation runs for minutes; the write timeout covers the whole pipeline.
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down, waiting for in-flight runs until
// ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
