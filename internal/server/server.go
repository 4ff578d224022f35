// Package server provides the HTTP API for asking policy questions.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"policyqa/internal/config"
	"policyqa/internal/domain"
	"policyqa/internal/logging"
)

// Index is the read side of the pipeline the server reports on.
type Index interface {
	domain.Asker
	Len() int
}

type Server struct {
	index    Index
	config   config.ServerConfig
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	server   *http.Server
}

// NewServer creates a server. A nil gatherer disables /metrics.
func NewServer(index Index, cfg config.ServerConfig, logger *zap.Logger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		index:    index,
		config:   cfg,
		logger:   logging.OrNop(logger),
		gatherer: gatherer,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
