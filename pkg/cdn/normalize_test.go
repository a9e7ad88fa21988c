package cdn

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdnops/trafficbridge/pkg/metric"
)

func hourRow(ts string, field string, value float64) seriesRow {
	return seriesRow{
		Dimensions: map[string]interface{}{"datetime": ts},
		Sum:        map[string]float64{field: value},
	}
}

func TestNormalizeSeriesMergesEqualBuckets(t *testing.T) {
	d := registry["l7Flow_request"]
	rows := []seriesRow{
		hourRow("2026-03-10T10:00:00Z", "requests", 3),
		hourRow("2026-03-10T10:00:00Z", "requests", 5),
	}

	res, err := normalizeSeries("l7Flow_request", d, hourlyWindow(), rows)
	require.NoError(t, err)

	require.Len(t, res.Series.Detail, 1)
	assert.Equal(t, float64(8), res.Series.Detail[0].Value)
	assert.Equal(t, float64(8), res.Series.Sum)
	assert.Equal(t, "l7Flow_request", res.Series.MetricName)
}

func TestNormalizeSeriesSortsAscending(t *testing.T) {
	d := registry["l7Flow_request"]
	rows := []seriesRow{
		hourRow("2026-03-10T11:00:00Z", "requests", 2),
		hourRow("2026-03-10T09:00:00Z", "requests", 1),
		hourRow("2026-03-10T10:00:00Z", "requests", 4),
	}

	res, err := normalizeSeries("l7Flow_request", d, hourlyWindow(), rows)
	require.NoError(t, err)

	require.Len(t, res.Series.Detail, 3)
	for i := 1; i < len(res.Series.Detail); i++ {
		assert.Less(t, res.Series.Detail[i-1].Timestamp, res.Series.Detail[i].Timestamp)
	}
	assert.Equal(t, float64(7), res.Series.Sum)
}

func TestNormalizeSeriesDailyRollupForFunctions(t *testing.T) {
	d := registry["function_request"]
	rows := []seriesRow{
		hourRow("2026-03-01T00:00:00Z", "requests", 2),
		hourRow("2026-03-01T01:00:00Z", "requests", 3),
		hourRow("2026-03-02T05:00:00Z", "requests", 7),
	}

	res, err := normalizeSeries("function_request", d, dailyWindow(), rows)
	require.NoError(t, err)

	// Hour buckets fold into UTC-midnight day buckets.
	require.Len(t, res.Series.Detail, 2)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix(), res.Series.Detail[0].Timestamp)
	assert.Equal(t, float64(5), res.Series.Detail[0].Value)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).Unix(), res.Series.Detail[1].Timestamp)
	assert.Equal(t, float64(7), res.Series.Detail[1].Value)
	// The total is taken over the original hour rows.
	assert.Equal(t, float64(12), res.Series.Sum)
}

func TestNormalizeSeriesNoRollupForShortWindow(t *testing.T) {
	d := registry["function_request"]
	rows := []seriesRow{
		hourRow("2026-03-10T10:00:00Z", "requests", 2),
		hourRow("2026-03-10T11:00:00Z", "requests", 3),
	}

	res, err := normalizeSeries("function_request", d, hourlyWindow(), rows)
	require.NoError(t, err)
	assert.Len(t, res.Series.Detail, 2)
}

func TestNormalizeSeriesRejectsBadBucket(t *testing.T) {
	d := registry["l7Flow_request"]
	rows := []seriesRow{
		{Dimensions: map[string]interface{}{"datetime": 42.0}, Sum: map[string]float64{"requests": 1}},
	}
	_, err := normalizeSeries("l7Flow_request", d, hourlyWindow(), rows)
	assert.Error(t, err)
}

func TestNormalizeSeriesEmptyRows(t *testing.T) {
	d := registry["l7Flow_request"]
	res, err := normalizeSeries("l7Flow_request", d, hourlyWindow(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Series.Detail)
	assert.Zero(t, res.Series.Sum)
}

func TestNormalizeDistributionStableSort(t *testing.T) {
	d := registry["l7Flow_request_country"]
	rows := []seriesRow{
		{Dimensions: map[string]interface{}{"clientCountryName": "A"}, Sum: map[string]float64{"visits": 5}},
		{Dimensions: map[string]interface{}{"clientCountryName": "B"}, Sum: map[string]float64{"visits": 9}},
		{Dimensions: map[string]interface{}{"clientCountryName": "C"}, Sum: map[string]float64{"visits": 9}},
	}

	res := normalizeDistribution(d, rows)

	// Ties keep upstream order: B before C.
	require.Len(t, res.Details, 3)
	assert.Equal(t, "B", res.Details[0].Key)
	assert.Equal(t, "C", res.Details[1].Key)
	assert.Equal(t, "A", res.Details[2].Key)
}

func TestNormalizeDistributionStringifiesNumericDimension(t *testing.T) {
	d := registry["l7Flow_request_statusCode"]
	rows := []seriesRow{
		{Dimensions: map[string]interface{}{"edgeResponseStatus": float64(404)}, Sum: map[string]float64{"visits": 3}},
		{Dimensions: map[string]interface{}{"edgeResponseStatus": float64(200)}, Sum: map[string]float64{"visits": 90}},
	}

	res := normalizeDistribution(d, rows)
	require.Len(t, res.Details, 2)
	assert.Equal(t, "200", res.Details[0].Key)
	assert.Equal(t, "404", res.Details[1].Key)
}

func TestNormalizeZoneDistribution(t *testing.T) {
	d := registry["l7Flow_request_zone"]
	zones := []zoneRows{
		{ZoneTag: "z1", Rows: []seriesRow{
			hourRow("2026-03-10T10:00:00Z", "requests", 2),
			hourRow("2026-03-10T11:00:00Z", "requests", 3),
		}},
		{ZoneTag: "z2", Rows: []seriesRow{
			hourRow("2026-03-10T10:00:00Z", "requests", 40),
		}},
		{ZoneTag: "z3"},
	}
	names := map[string]string{"z1": "alpha.example", "z2": "beta.example"}

	res := normalizeZoneDistribution(d, zones, names)

	require.Len(t, res.Details, 3)
	assert.Equal(t, metric.DetailData{Key: "beta.example", Value: 40}, res.Details[0])
	assert.Equal(t, metric.DetailData{Key: "alpha.example", Value: 5}, res.Details[1])
	// A zone without rows still ranks, at zero, under its tag.
	assert.Equal(t, metric.DetailData{Key: "z3", Value: 0}, res.Details[2])
}

func TestNormalizeZoneTop(t *testing.T) {
	rows := []seriesRow{
		{Dimensions: map[string]interface{}{"clientRequestPath": "/a"}, Count: 3},
		{Dimensions: map[string]interface{}{"clientRequestPath": "/b"}, Count: 11},
	}

	res := normalizeZoneTop("clientRequestPath", rows)
	require.Len(t, res.Details, 2)
	assert.Equal(t, "/b", res.Details[0].Key)
	assert.Equal(t, float64(11), res.Details[0].Value)
}

func TestDecodeAccountRows(t *testing.T) {
	data := json.RawMessage(`{"viewer":{"accounts":[{"httpRequests1hGroups":[{"dimensions":{"datetime":"2026-03-10T10:00:00Z"},"sum":{"requests":3}}]}]}}`)
	rows, err := decodeAccountRows(data, "httpRequests1hGroups")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(3), rows[0].Sum["requests"])
}

func TestDecodeAccountRowsNoAccounts(t *testing.T) {
	rows, err := decodeAccountRows(json.RawMessage(`{"viewer":{"accounts":[]}}`), "httpRequests1hGroups")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseBucketTimeLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-03-10T10:00:00Z", time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-03-10", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		ts, err := parseBucketTime(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want.Unix(), ts)
	}

	_, err := parseBucketTime("last tuesday")
	assert.Error(t, err)
}
