package cdn

import (
	"fmt"

	"github.com/cdnops/trafficbridge/pkg/timewindow"
)

// invocationDataset is the hour-grouped dataset serving function
// metrics; it is queried at hourly granularity even for long-term
// windows, with the rollup applied client-side during normalization.
const invocationDataset = "workersInvocationsAdaptive"

// distributionDataset serves account-scope distributions and the ad-hoc
// zone Top-N path.
const distributionDataset = "httpRequestsAdaptiveGroups"

// buildAccountSeriesQuery builds the account-scope time-series document:
// the granularity-selected dataset (or the invocation dataset for
// function metrics), ordered ascending by the time dimension.
func buildAccountSeriesQuery(d Descriptor, w timewindow.Window, accountTag string) (string, map[string]interface{}) {
	dataset := w.Dataset()
	timeDim := w.TimeDimension()
	since := w.FormatBound(w.Start)
	until := w.FormatBound(w.End)
	if d.Function {
		dataset = invocationDataset
		timeDim = "datetime"
		since = w.FormatInstant(w.Start)
		until = w.FormatInstant(w.End)
	}

	doc := fmt.Sprintf(`query ($accountTag: String!, $since: String!, $until: String!) {
	viewer {
		accounts(filter: {accountTag: $accountTag}) {
			%[1]s(
				filter: {%[2]s_geq: $since, %[2]s_leq: $until}
				limit: 1000
				orderBy: [%[2]s_ASC]
			) {
				dimensions {
					%[2]s
				}
				sum {
					%[3]s
				}
			}
		}
	}
}`, dataset, timeDim, d.Field)

	vars := map[string]interface{}{
		"accountTag": accountTag,
		"since":      since,
		"until":      until,
	}
	return doc, vars
}

// buildAccountDistributionQuery builds the "overview grouped by
// dimension" document, ordered by the summed field descending, limit 100,
// filtered over the full window.
func buildAccountDistributionQuery(d Descriptor, w timewindow.Window, accountTag string) (string, map[string]interface{}) {
	geqKey, leqKey := w.FilterKeys()

	doc := fmt.Sprintf(`query ($accountTag: String!, $since: String!, $until: String!) {
	viewer {
		accounts(filter: {accountTag: $accountTag}) {
			%[1]s(
				filter: {%[2]s: $since, %[3]s: $until}
				limit: 100
				orderBy: [sum_%[4]s_DESC]
			) {
				dimensions {
					%[5]s
				}
				sum {
					%[4]s
				}
			}
		}
	}
}`, distributionDataset, geqKey, leqKey, d.Field, d.Dimension)

	vars := map[string]interface{}{
		"accountTag": accountTag,
		"since":      w.FormatBound(w.Start),
		"until":      w.FormatBound(w.End),
	}
	return doc, vars
}

// buildZoneSeriesQuery builds the zone-scope document over the zone-ID
// set. Only the lower time bound is wired into the filter; the upper
// bound is accepted as a variable but deliberately left out of the
// clause. Kept as-is pending product clarification.
func buildZoneSeriesQuery(d Descriptor, w timewindow.Window, zoneTags []string) (string, map[string]interface{}) {
	geqKey, _ := w.FilterKeys()

	doc := fmt.Sprintf(`query ($zoneTags: [String!], $since: String!) {
	viewer {
		zones(filter: {zoneTag_in: $zoneTags}) {
			zoneTag
			%[1]s(
				filter: {%[2]s: $since}
				limit: 1000
				orderBy: [%[3]s]
			) {
				dimensions {
					%[4]s
				}
				sum {
					%[5]s
				}
			}
		}
	}
}`, w.Dataset(), geqKey, w.OrderBy(), w.TimeDimension(), d.Field)

	vars := map[string]interface{}{
		"zoneTags": zoneTags,
		"since":    w.FormatBound(w.Start),
		"until":    w.FormatBound(w.End),
	}
	return doc, vars
}

// buildZoneTopQuery builds the ad-hoc single-zone Top-N document. The
// grouping field is interpolated literally into the document text with
// no variable binding or escaping; callers must only pass values from
// the static allow-list.
func buildZoneTopQuery(field, zoneTag string, w timewindow.Window) (string, map[string]interface{}) {
	doc := fmt.Sprintf(`query ($zoneTag: String!, $since: String!, $until: String!) {
	viewer {
		zones(filter: {zoneTag: $zoneTag}) {
			%[1]s(
				filter: {datetime_geq: $since, datetime_leq: $until}
				limit: 10
				orderBy: [count_DESC]
			) {
				count
				dimensions {
					%[2]s
				}
			}
		}
	}
}`, distributionDataset, field)

	vars := map[string]interface{}{
		"zoneTag": zoneTag,
		"since":   w.FormatInstant(w.Start),
		"until":   w.FormatInstant(w.End),
	}
	return doc, vars
}
