// Package http wires the pricing service to a chi router. Handlers are
// thin: validate the request, call the service, render JSON.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricecli/internal/config"
	custommw "pricecli/internal/middleware"
)

// Server is the HTTP front of the pricing service
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *slog.Logger
}

// NewServer builds the router and the underlying http.Server.
// The registry backs the /metrics endpoint; pass the one the
// pipeline metrics are registered on.
func NewServer(cfg config.ServerConfig, service PricingServiceInterface, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Order matters: request ID first, logging after IP resolution.
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(logger))
	r.Use(custommw.Recoverer(logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Compress(5))

	runs := NewRunsHandler(service, logger)
	results := NewResultsHandler(service, logger)
	health := NewHealthHandler()

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)

		if cfg.RateLimit.Enabled {
			limiter := custommw.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
			r.With(limiter.Handler).Mount("/runs", runs.Routes())
		} else {
			r.Mount("/runs", runs.Routes())
		}

		r.Mount("/", results.Routes())
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until the server is shut down
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
