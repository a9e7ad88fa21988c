// Package cdn implements the GraphQL CDN-analytics provider: a static
// metric registry, per-shape query builders, the HTTP invoker, and the
// response normalizer producing the unified contract.
package cdn

import (
	"fmt"

	"github.com/cdnops/trafficbridge/pkg/metric"
)

// Scope selects the GraphQL viewer branch a metric is queried under.
type Scope int

const (
	ScopeAccount Scope = iota
	ScopeZone
)

// Descriptor maps a metric key to its upstream query parameters.
type Descriptor struct {
	Scope Scope
	// Field is the upstream aggregation field summed per row.
	Field string
	// Dimension is the grouping attribute, empty for pure time series.
	Dimension string
	Kind      metric.Kind
	// Function metrics query the invocation dataset at hourly granularity
	// regardless of window length and are rolled up client-side.
	Function bool
}

// registry is the static metric table. Zone-scope metrics group per
// zone and therefore normalize to distributions even though the upstream
// rows are time buckets.
var registry = map[string]Descriptor{
	// Account-scope time series.
	"l7Flow_request": {Scope: ScopeAccount, Field: "requests", Kind: metric.KindTimeSeries},
	"l7Flow_flux":    {Scope: ScopeAccount, Field: "bytes", Kind: metric.KindTimeSeries},
	// The upstream dataset reports no separate inbound byte count, so the
	// inbound-flux key serves the same summed field as l7Flow_flux.
	"l7Flow_inFlux":        {Scope: ScopeAccount, Field: "bytes", Kind: metric.KindTimeSeries},
	"l7Flow_cachedRequest": {Scope: ScopeAccount, Field: "cachedRequests", Kind: metric.KindTimeSeries},
	"l7Flow_cachedFlux":    {Scope: ScopeAccount, Field: "cachedBytes", Kind: metric.KindTimeSeries},
	"l7Flow_threat":        {Scope: ScopeAccount, Field: "threats", Kind: metric.KindTimeSeries},

	// Function (workers) metrics: always hour-grouped upstream.
	"function_request": {Scope: ScopeAccount, Field: "requests", Kind: metric.KindTimeSeries, Function: true},
	"function_cpuTime": {Scope: ScopeAccount, Field: "cpuTimeUs", Kind: metric.KindTimeSeries, Function: true},

	// Account-scope distributions, grouped by a row dimension upstream.
	"l7Flow_request_country":     {Scope: ScopeAccount, Field: "visits", Dimension: "clientCountryName", Kind: metric.KindDistribution},
	"l7Flow_flux_country":        {Scope: ScopeAccount, Field: "edgeResponseBytes", Dimension: "clientCountryName", Kind: metric.KindDistribution},
	"l7Flow_request_statusCode":  {Scope: ScopeAccount, Field: "visits", Dimension: "edgeResponseStatus", Kind: metric.KindDistribution},
	"l7Flow_request_contentType": {Scope: ScopeAccount, Field: "visits", Dimension: "edgeResponseContentTypeName", Kind: metric.KindDistribution},

	// Zone-scope: time buckets summed per zone, ranked by zone.
	"l7Flow_request_zone": {Scope: ScopeZone, Field: "requests", Dimension: "zone", Kind: metric.KindDistribution},
	"l7Flow_flux_zone":    {Scope: ScopeZone, Field: "bytes", Dimension: "zone", Kind: metric.KindDistribution},
}

// topFields is the allow-list for the ad-hoc zone Top-N path. The value
// is interpolated literally into the query document, so entries must
// stay static; never populate this from caller input.
var topFields = map[string]string{
	"l7Top_url":     "clientRequestPath",
	"l7Top_referer": "clientRefererHost",
	"l7Top_ua":      "userAgentBrowser",
	"l7Top_ip":      "clientIP",
}

func init() {
	if err := validateRegistry(registry); err != nil {
		panic(fmt.Sprintf("cdn: invalid metric registry: %v", err))
	}
}

// validateRegistry enforces the descriptor invariants at load time so a
// bad table entry fails the process start, not a request.
func validateRegistry(reg map[string]Descriptor) error {
	for key, d := range reg {
		if d.Field == "" {
			return fmt.Errorf("%s: missing summed field", key)
		}
		if hasDim := d.Dimension != ""; hasDim != (d.Kind == metric.KindDistribution) {
			return fmt.Errorf("%s: dimension must be set exactly for distributions", key)
		}
		if d.Function && d.Scope != ScopeAccount {
			return fmt.Errorf("%s: function metrics are account-scoped", key)
		}
	}
	return nil
}

// lookup resolves a metric key against the main registry.
func lookup(key string) (Descriptor, bool) {
	d, ok := registry[key]
	return d, ok
}

// lookupTopField resolves a metric key against the ad-hoc Top-N
// allow-list.
func lookupTopField(key string) (string, bool) {
	f, ok := topFields[key]
	return f, ok
}
