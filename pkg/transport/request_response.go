package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestResponse implements Transport as a single synchronous HTTP
// POST/decode round trip, the shape most component-to-component calls use.
type RequestResponse struct {
	endpoint   string
	httpClient *http.Client
}

// NewRequestResponse builds a RequestResponse transport targeting endpoint
// using httpClient (callers typically pass one built from
// pkg/shared/http.NewClient).
func NewRequestResponse(endpoint string, httpClient *http.Client) *RequestResponse {
	return &RequestResponse{endpoint: endpoint, httpClient: httpClient}
}

// Send POSTs the envelope as JSON and decodes the response body as the
// reply envelope.
func (t *RequestResponse) Send(ctx context.Context, envelope Envelope) (*Envelope, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request/response transport failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request/response transport returned status %d", resp.StatusCode)
	}

	var reply Envelope
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply envelope: %w", err)
	}
	return &reply, nil
}

// Close is a no-op: the underlying http.Client owns its own connection
// pool and outlives any single RequestResponse transport.
func (t *RequestResponse) Close() error { return nil }
