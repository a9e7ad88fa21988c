package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cdnops/trafficbridge/pkg/credentials"
	"github.com/cdnops/trafficbridge/pkg/metric"
)

// Client performs the upstream HTTP calls: GraphQL analytics queries and
// the REST zone listing.
type Client struct {
	httpClient *http.Client
	graphqlURL string
	apiBase    string
}

// NewClient creates an upstream client. A nil httpClient gets a default
// with a 15 second timeout.
func NewClient(graphqlURL, apiBase string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		graphqlURL: graphqlURL,
		apiBase:    apiBase,
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// query executes one GraphQL document. A non-2xx status surfaces as a
// TransportError; a response carrying a non-empty errors array surfaces
// as a QueryError with the raw error payload.
func (c *Client) query(ctx context.Context, creds credentials.Credentials, doc string, vars map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: doc, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req, creds)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &metric.TransportError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if hasErrors(gqlResp.Errors) {
		return nil, &metric.QueryError{Payload: gqlResp.Errors}
	}

	return gqlResp.Data, nil
}

func hasErrors(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var errs []json.RawMessage
	if err := json.Unmarshal(raw, &errs); err != nil {
		// Not an array, but present: treat any non-null payload as an error.
		return string(raw) != "null"
	}
	return len(errs) > 0
}

// Zone is one entry of the zone listing.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type zoneListResponse struct {
	Result []Zone `json:"result"`
}

// listZones fetches the account's zones (first page; the upstream cap is
// preserved, see the package docs).
func (c *Client) listZones(ctx context.Context, creds credentials.Credentials) ([]Zone, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/zones", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setAuthHeaders(req, creds)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &metric.TransportError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var listResp zoneListResponse
	if err := json.Unmarshal(respBody, &listResp); err != nil {
		return nil, fmt.Errorf("unmarshal zone list: %w", err)
	}
	return listResp.Result, nil
}

func (c *Client) setAuthHeaders(req *http.Request, creds credentials.Credentials) {
	req.Header.Set("X-Auth-Email", creds.CDNEmail)
	req.Header.Set("X-Auth-Key", creds.CDNKey)
}
