package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdnops/trafficbridge/pkg/metric"
)

type fakeFetcher struct {
	result  *metric.Result
	err     error
	calls   int
	lastReq metric.Request
}

func (f *fakeFetcher) FetchMetric(ctx context.Context, req metric.Request) (*metric.Result, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

func doTraffic(t *testing.T, fetcher MetricFetcher, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(fetcher, nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetTrafficSeries(t *testing.T) {
	fetcher := &fakeFetcher{result: &metric.Result{Series: &metric.TypeValue{
		MetricName: "l7Flow_request",
		Detail:     []metric.Point{{Timestamp: 1767225600, Value: 8}},
		Sum:        8,
	}}}

	rec := doTraffic(t, fetcher, "/traffic?metric=l7Flow_request")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"Data":[{"MetricName":"l7Flow_request","Detail":[{"Timestamp":1767225600,"Value":8}],"Sum":8}]}`, rec.Body.String())
}

func TestGetTrafficDistribution(t *testing.T) {
	fetcher := &fakeFetcher{result: &metric.Result{Details: []metric.DetailData{
		{Key: "US", Value: 9},
		{Key: "DE", Value: 5},
	}}}

	rec := doTraffic(t, fetcher, "/traffic?metric=l7Flow_request_country")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Data":[{"Key":"US","Value":9},{"Key":"DE","Value":5}]}`, rec.Body.String())
}

func TestGetTrafficParamPassthrough(t *testing.T) {
	fetcher := &fakeFetcher{result: &metric.Result{}}

	doTraffic(t, fetcher, "/traffic?metric=edge_flux&startTime=2026-03-01&endTime=2026-03-02&siteId=site-9&interval=300&Limit=5")

	require.Equal(t, 1, fetcher.calls)
	assert.Equal(t, metric.Request{
		Metric:    "edge_flux",
		StartTime: "2026-03-01",
		EndTime:   "2026-03-02",
		SiteID:    "site-9",
		Interval:  300,
		Limit:     5,
	}, fetcher.lastReq)
}

func TestGetTrafficInvalidMetric(t *testing.T) {
	fetcher := &fakeFetcher{err: metric.ErrInvalidMetric}

	rec := doTraffic(t, fetcher, "/traffic?metric=no_such_metric")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid metric"}`, rec.Body.String())
}

func TestGetTrafficMissingCredentials(t *testing.T) {
	fetcher := &fakeFetcher{err: metric.ErrMissingCredentials}

	rec := doTraffic(t, fetcher, "/traffic?metric=l7Flow_request")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTrafficQueryErrorEchoed(t *testing.T) {
	payload := `[{"message":"unknown field","path":["viewer"]}]`
	fetcher := &fakeFetcher{err: &metric.QueryError{Payload: json.RawMessage(payload)}}

	rec := doTraffic(t, fetcher, "/traffic?metric=l7Flow_request")

	// The upstream error payload is echoed verbatim.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, payload, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestGetTrafficTransportError(t *testing.T) {
	tests := []struct {
		name       string
		err        *metric.TransportError
		wantStatus int
	}{
		{"upstream 503", &metric.TransportError{StatusCode: 503, Body: "maintenance"}, 503},
		{"upstream 429", &metric.TransportError{StatusCode: 429, Body: "slow down"}, 429},
		{"sub-400 status becomes bad gateway", &metric.TransportError{StatusCode: 301, Body: "moved"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doTraffic(t, &fakeFetcher{err: tt.err}, "/traffic?metric=l7Flow_request")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.err.Body)
		})
	}
}

func TestGetTrafficUnexpectedError(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}

	rec := doTraffic(t, fetcher, "/traffic?metric=l7Flow_request")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetHealth(t *testing.T) {
	rec := doTraffic(t, &fakeFetcher{}, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestIDHeaderSet(t *testing.T) {
	rec := doTraffic(t, &fakeFetcher{result: &metric.Result{}}, "/traffic?metric=edge_flux")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(&fakeFetcher{}, nil, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/traffic", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
