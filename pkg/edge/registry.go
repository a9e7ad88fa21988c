// Package edge implements the signed-REST edge-analytics provider: its
// metric registry, the HMAC-SHA1 request signer, the HTTP invoker, and
// the response normalizer producing the unified contract.
package edge

import (
	"fmt"

	"github.com/cdnops/trafficbridge/pkg/metric"
)

const (
	// ActionTimeSeries is the upstream time-series query action.
	ActionTimeSeries = "DescribeSiteTimeSeriesData"
	// ActionTopData is the upstream Top-N query action.
	ActionTopData = "DescribeSiteTopData"
)

// Descriptor maps a metric key to the upstream action and field spec.
type Descriptor struct {
	Action    string
	Field     string
	Dimension []string
	Kind      metric.Kind
}

// seedRegistry is the registry as authored: entries with an explicit
// action are time series; entries without one are filled in at load time
// as Top-N distributions.
var seedRegistry = map[string]Descriptor{
	"edge_flux":       {Action: ActionTimeSeries, Field: "Traffic"},
	"edge_request":    {Action: ActionTimeSeries, Field: "Request"},
	"edge_bandwidth":  {Action: ActionTimeSeries, Field: "Bandwidth"},
	"edge_status_5xx": {Action: ActionTimeSeries, Field: "Status5xxRate"},

	"edge_topUrl":      {Field: "Request", Dimension: []string{"URL"}},
	"edge_topReferer":  {Field: "Request", Dimension: []string{"Referer"}},
	"edge_topClientIP": {Field: "Request", Dimension: []string{"ClientIP"}},
	"edge_topCountry":  {Field: "Traffic", Dimension: []string{"Country"}},
}

var registry = buildRegistry(seedRegistry)

// buildRegistry applies the default-fill rule once, at load time: a
// missing action means a Top-N distribution; an explicit action means a
// time series. Invalid entries fail the process start.
func buildRegistry(seed map[string]Descriptor) map[string]Descriptor {
	out := make(map[string]Descriptor, len(seed))
	for key, d := range seed {
		if d.Action == "" {
			d.Action = ActionTopData
			d.Kind = metric.KindDistribution
		} else {
			d.Kind = metric.KindTimeSeries
		}
		if err := validate(key, d); err != nil {
			panic(fmt.Sprintf("edge: invalid metric registry: %v", err))
		}
		out[key] = d
	}
	return out
}

func validate(key string, d Descriptor) error {
	if d.Field == "" {
		return fmt.Errorf("%s: missing field", key)
	}
	if hasDim := len(d.Dimension) > 0; hasDim != (d.Kind == metric.KindDistribution) {
		return fmt.Errorf("%s: dimension must be set exactly for distributions", key)
	}
	return nil
}

// lookup resolves a metric key against the filled registry.
func lookup(key string) (Descriptor, bool) {
	d, ok := registry[key]
	return d, ok
}
