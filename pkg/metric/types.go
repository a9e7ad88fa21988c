// Package metric defines the unified analytics contract shared by every
// provider adapter: the request shape, the two normalized result
// variants, the error taxonomy, and the registry-based dispatcher.
package metric

import (
	"context"
	"encoding/json"
)

// Kind distinguishes the two normalized result shapes.
type Kind int

const (
	// KindTimeSeries is an ordered sequence of timestamped values.
	KindTimeSeries Kind = iota
	// KindDistribution is a ranked key/value breakdown.
	KindDistribution
)

func (k Kind) String() string {
	if k == KindDistribution {
		return "distribution"
	}
	return "timeseries"
}

// Point is one sample of a time series. Timestamp is epoch seconds.
type Point struct {
	Timestamp int64   `json:"Timestamp"`
	Value     float64 `json:"Value"`
}

// TypeValue is the unified time-series shape.
type TypeValue struct {
	MetricName string  `json:"MetricName"`
	Detail     []Point `json:"Detail"`
	Sum        float64 `json:"Sum"`
}

// DetailData is one row of a ranked distribution. Timestamp is optional
// and carried through only when the upstream reports one.
type DetailData struct {
	Key       string  `json:"Key"`
	Value     float64 `json:"Value"`
	Timestamp int64   `json:"Timestamp,omitempty"`
}

// Request carries the caller's query parameters to a provider adapter.
// Interval and Limit are zero when the caller did not supply them;
// providers apply their own defaults.
type Request struct {
	Metric    string
	StartTime string
	EndTime   string
	SiteID    string
	Interval  int
	Limit     int
}

// Result is the unified response: exactly one of Series or Details is
// set. It marshals as the {"Data": [...]} envelope the HTTP surface
// returns, with a time series wrapped as a one-element array.
type Result struct {
	Series  *TypeValue
	Details []DetailData
}

// MarshalJSON renders the {"Data": [...]} envelope.
func (r *Result) MarshalJSON() ([]byte, error) {
	data := make([]interface{}, 0, len(r.Details)+1)
	if r.Series != nil {
		data = append(data, r.Series)
	} else {
		for _, d := range r.Details {
			data = append(data, d)
		}
	}
	return json.Marshal(map[string]interface{}{"Data": data})
}

// Provider is one upstream analytics adapter. Recognizes is a pure
// registry lookup; FetchMetric performs the upstream call(s) and
// normalization for a key the provider recognizes.
type Provider interface {
	Recognizes(metricKey string) bool
	FetchMetric(ctx context.Context, req Request) (*Result, error)
}
