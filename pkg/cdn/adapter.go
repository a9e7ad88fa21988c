package cdn

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/cdnops/trafficbridge/pkg/credentials"
	"github.com/cdnops/trafficbridge/pkg/metric"
	"github.com/cdnops/trafficbridge/pkg/observability"
	"github.com/cdnops/trafficbridge/pkg/timewindow"
)

// Options configures the CDN adapter.
type Options struct {
	// GraphQLEndpoint is the analytics GraphQL URL.
	GraphQLEndpoint string
	// APIEndpoint is the REST base URL used for the zone listing.
	APIEndpoint string
	// AccountTag identifies the account for account-scope queries.
	AccountTag string
	// ZoneTag is the zone queried by the ad-hoc Top-N path when the
	// caller supplies no siteId.
	ZoneTag string

	Credentials *credentials.Store
	Clock       clockwork.Clock
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	// HTTPClient overrides the upstream client, primarily for tests.
	HTTPClient *http.Client
}

// Adapter is the CDN-analytics provider implementation.
type Adapter struct {
	client     *Client
	resolver   *timewindow.Resolver
	accountTag string
	zoneTag    string
	creds      *credentials.Store
	logger     *observability.Logger
}

// New creates the CDN adapter.
func New(opts Options) *Adapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: observability.UpstreamTransport("cdn", opts.Metrics, nil),
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Adapter{
		client:     NewClient(opts.GraphQLEndpoint, opts.APIEndpoint, httpClient),
		resolver:   timewindow.NewResolver(opts.Clock),
		accountTag: opts.AccountTag,
		zoneTag:    opts.ZoneTag,
		creds:      opts.Credentials,
		logger:     logger.WithField("provider", "cdn"),
	}
}

// Recognizes reports whether the key is in this provider's registry or
// the ad-hoc Top-N allow-list.
func (a *Adapter) Recognizes(key string) bool {
	if _, ok := lookup(key); ok {
		return true
	}
	_, ok := lookupTopField(key)
	return ok
}

// FetchMetric resolves the descriptor, builds and executes the query
// shape it selects, and normalizes the payload.
func (a *Adapter) FetchMetric(ctx context.Context, req metric.Request) (*metric.Result, error) {
	creds := a.creds.Get()
	if !creds.CDNComplete() {
		return nil, metric.ErrMissingCredentials
	}

	w := a.resolver.Resolve(req.StartTime, req.EndTime)
	log := a.logger.WithFields(map[string]interface{}{
		"metric":      req.Metric,
		"granularity": w.Granularity.String(),
	})

	if field, ok := lookupTopField(req.Metric); ok {
		log.Debug("fetching zone top-N")
		return a.fetchZoneTop(ctx, creds, field, req, w)
	}

	d, ok := lookup(req.Metric)
	if !ok {
		return nil, metric.ErrInvalidMetric
	}

	switch {
	case d.Scope == ScopeZone:
		log.Debug("fetching zone distribution")
		return a.fetchZoneDistribution(ctx, creds, d, w)
	case d.Kind == metric.KindDistribution:
		log.Debug("fetching account distribution")
		return a.fetchAccountDistribution(ctx, creds, d, w)
	default:
		log.Debug("fetching account series")
		return a.fetchAccountSeries(ctx, creds, req.Metric, d, w)
	}
}

func (a *Adapter) fetchAccountSeries(ctx context.Context, creds credentials.Credentials, metricName string, d Descriptor, w timewindow.Window) (*metric.Result, error) {
	doc, vars := buildAccountSeriesQuery(d, w, a.accountTag)
	data, err := a.client.query(ctx, creds, doc, vars)
	if err != nil {
		return nil, err
	}

	dataset := w.Dataset()
	if d.Function {
		dataset = invocationDataset
	}
	rows, err := decodeAccountRows(data, dataset)
	if err != nil {
		return nil, err
	}
	return normalizeSeries(metricName, d, w, rows)
}

func (a *Adapter) fetchAccountDistribution(ctx context.Context, creds credentials.Credentials, d Descriptor, w timewindow.Window) (*metric.Result, error) {
	doc, vars := buildAccountDistributionQuery(d, w, a.accountTag)
	data, err := a.client.query(ctx, creds, doc, vars)
	if err != nil {
		return nil, err
	}

	rows, err := decodeAccountRows(data, distributionDataset)
	if err != nil {
		return nil, err
	}
	return normalizeDistribution(d, rows), nil
}

// fetchZoneDistribution is the two-call path: zone listing first, then
// the analytics query over the zone-ID set. The calls are sequential
// because the second depends on the first's result.
func (a *Adapter) fetchZoneDistribution(ctx context.Context, creds credentials.Credentials, d Descriptor, w timewindow.Window) (*metric.Result, error) {
	zones, err := a.client.listZones(ctx, creds)
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return &metric.Result{Details: []metric.DetailData{}}, nil
	}

	tags := make([]string, 0, len(zones))
	names := make(map[string]string, len(zones))
	for _, z := range zones {
		tags = append(tags, z.ID)
		names[z.ID] = z.Name
	}

	doc, vars := buildZoneSeriesQuery(d, w, tags)
	data, err := a.client.query(ctx, creds, doc, vars)
	if err != nil {
		return nil, err
	}

	perZone, err := decodeZoneRows(data, w.Dataset())
	if err != nil {
		return nil, err
	}
	return normalizeZoneDistribution(d, perZone, names), nil
}

func (a *Adapter) fetchZoneTop(ctx context.Context, creds credentials.Credentials, field string, req metric.Request, w timewindow.Window) (*metric.Result, error) {
	zoneTag := req.SiteID
	if zoneTag == "" {
		zoneTag = a.zoneTag
	}

	doc, vars := buildZoneTopQuery(field, zoneTag, w)
	data, err := a.client.query(ctx, creds, doc, vars)
	if err != nil {
		return nil, err
	}

	perZone, err := decodeZoneRows(data, distributionDataset)
	if err != nil {
		return nil, err
	}
	var rows []seriesRow
	if len(perZone) > 0 {
		rows = perZone[0].Rows
	}
	return normalizeZoneTop(field, rows), nil
}
