package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cdnops/trafficbridge/pkg/metric"
)

// Client performs the signed GET calls against the edge analytics API.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates an upstream client. A nil httpClient gets a default
// with a 15 second timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpClient: httpClient, endpoint: endpoint}
}

// apiResponse is the upstream payload shape. Code/Message are set on
// structured upstream errors; Data carries the analytics blocks.
type apiResponse struct {
	Code    string      `json:"Code"`
	Message string      `json:"Message"`
	Data    []dataBlock `json:"Data"`
}

// dataBlock is one result block: Detail rows for time series, DetailData
// rows for Top-N, Value as the upstream-reported series total.
type dataBlock struct {
	Type       string      `json:"Type"`
	Value      float64     `json:"Value"`
	Detail     []detailRow `json:"Detail"`
	DetailData []topRow    `json:"DetailData"`
}

type detailRow struct {
	Timestamp float64 `json:"Timestamp"`
	Value     float64 `json:"Value"`
}

type topRow struct {
	Name      string  `json:"Name"`
	Value     float64 `json:"Value"`
	Timestamp int64   `json:"Timestamp"`
}

// do executes one signed request. A non-2xx status surfaces as a
// TransportError; a 2xx body carrying an error code surfaces as a
// QueryError with the raw body.
func (c *Client) do(ctx context.Context, params map[string]string, secret string) (*apiResponse, error) {
	u := c.endpoint + "?" + SignedQuery(params, secret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &metric.TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Code != "" {
		return nil, &metric.QueryError{Payload: json.RawMessage(body)}
	}
	return &apiResp, nil
}
