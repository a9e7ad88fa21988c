package metric

import "context"

// Dispatcher routes a request to the first provider whose registry
// recognizes the metric key. The two providers in this system use
// disjoint registries, so ordering only matters for rejection speed.
type Dispatcher struct {
	providers []Provider
}

// NewDispatcher creates a dispatcher over the given providers.
func NewDispatcher(providers ...Provider) *Dispatcher {
	return &Dispatcher{providers: providers}
}

// FetchMetric resolves the metric key against each provider in order and
// delegates to the first match. An unrecognized key returns
// ErrInvalidMetric without touching any upstream.
func (d *Dispatcher) FetchMetric(ctx context.Context, req Request) (*Result, error) {
	for _, p := range d.providers {
		if p.Recognizes(req.Metric) {
			return p.FetchMetric(ctx, req)
		}
	}
	return nil, ErrInvalidMetric
}
