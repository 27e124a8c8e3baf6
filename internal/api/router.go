package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinycask/tinycask/internal/shared"
)

// Router creates and configures the HTTP router
func Router(handler *Handler, metrics *Metrics, tracer *Tracer, gatherer prometheus.Gatherer, logger *shared.Logger) http.Handler {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(
		SecurityHeaders,
		LoggingMiddleware(logger),
		RecoveryMiddleware,
		metrics.MetricsMiddleware,
	)
	if tracer != nil {
		router.Use(tracer.TracingMiddleware)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/keys", handler.ListKeys).Methods(http.MethodGet)
	api.HandleFunc("/keys/{key}", handler.GetValue).Methods(http.MethodGet)
	api.HandleFunc("/keys/{key}", handler.SetValue).Methods(http.MethodPut)
	api.HandleFunc("/keys/{key}", handler.DeleteValue).Methods(http.MethodDelete)

	// Prometheus exposition
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return router
}
