package metric

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	keys   map[string]bool
	result *Result
	err    error
	calls  int
}

func (p *stubProvider) Recognizes(metricKey string) bool {
	return p.keys[metricKey]
}

func (p *stubProvider) FetchMetric(ctx context.Context, req Request) (*Result, error) {
	p.calls++
	return p.result, p.err
}

func TestDispatcherRoutesToRecognizingProvider(t *testing.T) {
	first := &stubProvider{keys: map[string]bool{"l7Flow_request": true}}
	second := &stubProvider{
		keys:   map[string]bool{"edge_flux": true},
		result: &Result{Series: &TypeValue{MetricName: "edge_flux"}},
	}
	d := NewDispatcher(first, second)

	res, err := d.FetchMetric(context.Background(), Request{Metric: "edge_flux"})
	require.NoError(t, err)
	assert.Equal(t, "edge_flux", res.Series.MetricName)
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestDispatcherUnknownMetric(t *testing.T) {
	first := &stubProvider{keys: map[string]bool{"l7Flow_request": true}}
	second := &stubProvider{keys: map[string]bool{"edge_flux": true}}
	d := NewDispatcher(first, second)

	_, err := d.FetchMetric(context.Background(), Request{Metric: "no_such_metric"})
	assert.ErrorIs(t, err, ErrInvalidMetric)
	// Rejection happens before any provider is invoked.
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestResultMarshalSeries(t *testing.T) {
	res := &Result{Series: &TypeValue{
		MetricName: "l7Flow_request",
		Detail: []Point{
			{Timestamp: 1767225600, Value: 3},
			{Timestamp: 1767229200, Value: 5},
		},
		Sum: 8,
	}}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Data":[{"MetricName":"l7Flow_request","Detail":[{"Timestamp":1767225600,"Value":3},{"Timestamp":1767229200,"Value":5}],"Sum":8}]}`, string(data))
}

func TestResultMarshalDistribution(t *testing.T) {
	res := &Result{Details: []DetailData{
		{Key: "US", Value: 9},
		{Key: "DE", Value: 5},
	}}

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Data":[{"Key":"US","Value":9},{"Key":"DE","Value":5}]}`, string(data))
}

func TestResultMarshalEmptyDistribution(t *testing.T) {
	data, err := json.Marshal(&Result{})
	require.NoError(t, err)
	// The envelope is always present, never null.
	assert.JSONEq(t, `{"Data":[]}`, string(data))
}

func TestDetailDataTimestampOmittedWhenZero(t *testing.T) {
	data, err := json.Marshal(DetailData{Key: "/index.html", Value: 7})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Timestamp")

	data, err = json.Marshal(DetailData{Key: "/index.html", Value: 7, Timestamp: 1767225600})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Timestamp":1767225600`)
}
