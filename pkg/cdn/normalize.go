package cdn

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cdnops/trafficbridge/pkg/metric"
	"github.com/cdnops/trafficbridge/pkg/timewindow"
)

// seriesRow is one upstream group row. Dimensions carry the time bucket
// or grouping value; Sum carries the aggregated fields; Count is set on
// adaptive (Top-N) rows.
type seriesRow struct {
	Dimensions map[string]interface{} `json:"dimensions"`
	Sum        map[string]float64     `json:"sum"`
	Count      float64                `json:"count"`
}

type accountPayload struct {
	Viewer struct {
		Accounts []map[string]json.RawMessage `json:"accounts"`
	} `json:"viewer"`
}

type zonePayload struct {
	Viewer struct {
		Zones []map[string]json.RawMessage `json:"zones"`
	} `json:"viewer"`
}

// decodeAccountRows extracts the dataset rows of the first account. A
// response with zero accounts yields an empty row set, not an error.
func decodeAccountRows(data json.RawMessage, dataset string) ([]seriesRow, error) {
	var payload accountPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal account payload: %w", err)
	}
	if len(payload.Viewer.Accounts) == 0 {
		return nil, nil
	}
	raw, ok := payload.Viewer.Accounts[0][dataset]
	if !ok {
		return nil, nil
	}
	var rows []seriesRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal %s rows: %w", dataset, err)
	}
	return rows, nil
}

// zoneRows pairs a zone tag with its dataset rows, preserving upstream
// zone order for the stable ranking sort.
type zoneRows struct {
	ZoneTag string
	Rows    []seriesRow
}

// decodeZoneRows extracts per-zone dataset rows. Zones without the
// dataset key are kept with zero rows so they still rank (at value 0).
func decodeZoneRows(data json.RawMessage, dataset string) ([]zoneRows, error) {
	var payload zonePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal zone payload: %w", err)
	}
	out := make([]zoneRows, 0, len(payload.Viewer.Zones))
	for _, zone := range payload.Viewer.Zones {
		var zr zoneRows
		if raw, ok := zone["zoneTag"]; ok {
			if err := json.Unmarshal(raw, &zr.ZoneTag); err != nil {
				return nil, fmt.Errorf("unmarshal zoneTag: %w", err)
			}
		}
		if raw, ok := zone[dataset]; ok {
			if err := json.Unmarshal(raw, &zr.Rows); err != nil {
				return nil, fmt.Errorf("unmarshal %s rows: %w", dataset, err)
			}
		}
		out = append(out, zr)
	}
	return out, nil
}

// timeLayouts accepted for upstream time-dimension values.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

func parseBucketTime(raw interface{}) (int64, error) {
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("time dimension is not a string: %v", raw)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time bucket %q", s)
}

// normalizeSeries converts account-scope time-series rows into the
// unified TypeValue. Rows resolving to the same epoch second are merged
// by summing, covering upstreams that return sub-bucket rows. Sum is
// computed across all individual rows before any rollup; the rollup
// changes bucket counts, never the total.
func normalizeSeries(metricName string, d Descriptor, w timewindow.Window, rows []seriesRow) (*metric.Result, error) {
	timeDim := w.TimeDimension()
	if d.Function {
		timeDim = "datetime"
	}

	merged := make(map[int64]float64, len(rows))
	var total float64
	for _, row := range rows {
		ts, err := parseBucketTime(row.Dimensions[timeDim])
		if err != nil {
			return nil, err
		}
		value := row.Sum[d.Field]
		merged[ts] += value
		total += value
	}

	points := make([]metric.Point, 0, len(merged))
	for ts, value := range merged {
		points = append(points, metric.Point{Timestamp: ts, Value: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	if d.Function && w.LongTerm {
		points = rollupDaily(points)
	}

	return &metric.Result{Series: &metric.TypeValue{
		MetricName: metricName,
		Detail:     points,
		Sum:        total,
	}}, nil
}

// rollupDaily folds hour buckets into UTC-day buckets keyed at midnight,
// re-summing within each day.
func rollupDaily(points []metric.Point) []metric.Point {
	byDay := make(map[int64]float64, len(points))
	for _, p := range points {
		day := time.Unix(p.Timestamp, 0).UTC().Truncate(24 * time.Hour).Unix()
		byDay[day] += p.Value
	}
	out := make([]metric.Point, 0, len(byDay))
	for day, value := range byDay {
		out = append(out, metric.Point{Timestamp: day, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// normalizeDistribution converts dimension-grouped rows into ranked
// DetailData. The upstream already grouped, so rows map one-to-one; the
// sort is stable so upstream order breaks value ties.
func normalizeDistribution(d Descriptor, rows []seriesRow) *metric.Result {
	details := make([]metric.DetailData, 0, len(rows))
	for _, row := range rows {
		details = append(details, metric.DetailData{
			Key:   stringifyDimension(row.Dimensions[d.Dimension]),
			Value: row.Sum[d.Field],
		})
	}
	sort.SliceStable(details, func(i, j int) bool { return details[i].Value > details[j].Value })
	return &metric.Result{Details: details}
}

// normalizeZoneDistribution sums the configured field across each zone's
// rows and ranks zones by total, mapping zone IDs to display names.
func normalizeZoneDistribution(d Descriptor, zones []zoneRows, names map[string]string) *metric.Result {
	details := make([]metric.DetailData, 0, len(zones))
	for _, zone := range zones {
		var total float64
		for _, row := range zone.Rows {
			total += row.Sum[d.Field]
		}
		key := zone.ZoneTag
		if name, ok := names[zone.ZoneTag]; ok && name != "" {
			key = name
		}
		details = append(details, metric.DetailData{Key: key, Value: total})
	}
	sort.SliceStable(details, func(i, j int) bool { return details[i].Value > details[j].Value })
	return &metric.Result{Details: details}
}

// normalizeZoneTop converts ad-hoc Top-N rows (count per literal field
// value) into ranked DetailData.
func normalizeZoneTop(field string, rows []seriesRow) *metric.Result {
	details := make([]metric.DetailData, 0, len(rows))
	for _, row := range rows {
		details = append(details, metric.DetailData{
			Key:   stringifyDimension(row.Dimensions[field]),
			Value: row.Count,
		})
	}
	sort.SliceStable(details, func(i, j int) bool { return details[i].Value > details[j].Value })
	return &metric.Result{Details: details}
}

// stringifyDimension renders a dimension value as the distribution key.
// Numeric dimensions (status codes) come back as JSON numbers.
func stringifyDimension(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
