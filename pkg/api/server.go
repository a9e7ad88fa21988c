// Package api exposes the unified analytics HTTP surface: the /traffic
// endpoint, liveness, and Prometheus metrics.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cdnops/trafficbridge/pkg/httputil"
	"github.com/cdnops/trafficbridge/pkg/metric"
	"github.com/cdnops/trafficbridge/pkg/observability"
)

// MetricFetcher resolves and executes one metric request. Implemented by
// metric.Dispatcher.
type MetricFetcher interface {
	FetchMetric(ctx context.Context, req metric.Request) (*metric.Result, error)
}

// Server is the HTTP front of the service.
type Server struct {
	router  *mux.Router
	fetcher MetricFetcher
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewServer creates the server, wires middleware, and registers routes.
func NewServer(fetcher MetricFetcher, logger *observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router:  mux.NewRouter(),
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}

	s.router.Use(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
	)
	if metrics != nil {
		s.router.Use(httputil.MetricsMiddleware(metrics))
	}

	s.router.HandleFunc("/traffic", s.getTraffic).Methods("GET")
	s.router.HandleFunc("/healthz", s.getHealth).Methods("GET")
	if metrics != nil {
		s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
