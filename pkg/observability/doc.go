// Package observability provides structured logging, Prometheus metrics,
// and graceful shutdown for the trafficbridge service.
package observability
