package edge

import "github.com/cdnops/trafficbridge/pkg/metric"

// normalizeSeries maps the first data block's detail rows onto the
// unified TypeValue. Timestamps are truncated to whole seconds; Sum is
// the upstream-reported summary value, never a client-side re-summation.
func normalizeSeries(metricName string, blocks []dataBlock) *metric.Result {
	series := &metric.TypeValue{MetricName: metricName, Detail: []metric.Point{}}
	if len(blocks) == 0 {
		return &metric.Result{Series: series}
	}

	block := blocks[0]
	series.Sum = block.Value
	for _, row := range block.Detail {
		series.Detail = append(series.Detail, metric.Point{
			Timestamp: int64(row.Timestamp),
			Value:     row.Value,
		})
	}
	return &metric.Result{Series: series}
}

// normalizeTop renames the upstream dimension-value field to Key and
// carries the optional per-row timestamp through when present.
func normalizeTop(blocks []dataBlock) *metric.Result {
	details := make([]metric.DetailData, 0)
	for _, block := range blocks {
		for _, row := range block.DetailData {
			details = append(details, metric.DetailData{
				Key:       row.Name,
				Value:     row.Value,
				Timestamp: row.Timestamp,
			})
		}
	}
	return &metric.Result{Details: details}
}
