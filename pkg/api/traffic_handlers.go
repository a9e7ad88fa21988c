package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cdnops/trafficbridge/pkg/httputil"
	"github.com/cdnops/trafficbridge/pkg/metric"
	"github.com/cdnops/trafficbridge/pkg/observability"
)

// getTraffic handles GET /traffic
// Query params:
//   - metric: registry key (required)
//   - startTime, endTime: ISO-8601 instants (optional)
//   - siteId, interval, Limit: edge-provider extras (optional)
func (s *Server) getTraffic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := metric.Request{
		Metric:    q.Get("metric"),
		StartTime: q.Get("startTime"),
		EndTime:   q.Get("endTime"),
		SiteID:    q.Get("siteId"),
	}
	if raw := q.Get("interval"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.Interval = v
		}
	}
	if raw := q.Get("Limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.Limit = v
		}
	}

	result, err := s.fetcher.FetchMetric(ctx, req)
	if err != nil {
		s.writeFetchError(ctx, w, req, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// writeFetchError maps the metric error taxonomy onto HTTP responses:
// unknown metric and upstream-reported query errors are 400 (the latter
// echoing the upstream payload verbatim), missing credentials is 401,
// upstream transport failures surface the upstream status, and anything
// else is a 500 with the message.
func (s *Server) writeFetchError(ctx context.Context, w http.ResponseWriter, req metric.Request, err error) {
	log := observability.FromContext(ctx).WithField("metric", req.Metric)

	var queryErr *metric.QueryError
	var transportErr *metric.TransportError

	switch {
	case errors.Is(err, metric.ErrInvalidMetric):
		httputil.WriteBadRequest(w, "Invalid metric")
	case errors.Is(err, metric.ErrMissingCredentials):
		log.Warn("upstream credentials missing")
		httputil.WriteUnauthorized(w, "missing upstream credentials")
	case errors.As(err, &queryErr):
		log.WithError(err).Warn("upstream query error")
		httputil.WriteRawJSON(w, http.StatusBadRequest, queryErr.Payload)
	case errors.As(err, &transportErr):
		log.WithError(err).Error("upstream transport error")
		status := transportErr.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		httputil.WriteErrorMessage(w, status, transportErr.Body)
	default:
		log.WithError(err).Error("metric fetch failed")
		httputil.WriteInternalError(w, err)
	}
}
