package metric

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMetric is returned when no provider registry recognizes the
// requested metric key. No upstream call is made in that case.
var ErrInvalidMetric = errors.New("Invalid metric")

// ErrMissingCredentials is returned when the provider that recognizes
// the key has no complete credential set.
var ErrMissingCredentials = errors.New("missing upstream credentials")

// QueryError carries a structured error payload reported by an upstream
// in a successful HTTP response. The payload is passed to the caller
// verbatim.
type QueryError struct {
	Payload json.RawMessage
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("upstream query error: %s", string(e.Payload))
}

// TransportError carries the status and body of a non-2xx upstream HTTP
// response.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Body)
}
