// Package api exposes the engine over HTTP. It is an external caller
// of the engine's public interface: the storage core knows nothing
// about it.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinycask/tinycask/internal/engine"
	"github.com/tinycask/tinycask/internal/shared"
)

// Config carries the server-side configuration
type Config struct {
	// Address to listen on, e.g. ":8080"
	Address string
	// JaegerEndpoint is the Jaeger collector URL; empty disables tracing
	JaegerEndpoint string
	// ServiceName labels traces
	ServiceName string
}

// Server represents the HTTP API server
type Server struct {
	config     Config
	httpServer *http.Server
	tracer     *Tracer
	logger     *shared.Logger
}

// NewServer wires the engine into a configured HTTP server
func NewServer(db *engine.Engine, config Config, logger *shared.Logger) (*Server, error) {
	if config.ServiceName == "" {
		config.ServiceName = "tinycask"
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.UpdateEngineGauges(db.Len(), db.Size())

	var tracer *Tracer
	if config.JaegerEndpoint != "" {
		var err error
		tracer, err = NewTracer(config.ServiceName, config.JaegerEndpoint)
		if err != nil {
			return nil, err
		}
	}

	handler := NewHandler(db, metrics, tracer, logger)
	router := Router(handler, metrics, tracer, registry, logger)

	return &Server{
		config: config,
		httpServer: &http.Server{
			Addr:         config.Address,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		tracer: tracer,
		logger: logger,
	}, nil
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.config.Address)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and flushes pending traces
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.tracer != nil {
		return s.tracer.Shutdown(ctx)
	}
	return nil
}
