// Package client provides a thin HTTP wrapper for calling the
// Context/Memory Management Core from other Tekton components to
// record memory items and recall a packed injection for a turn.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ckoons/tekton-core/pkg/contextapi"
	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
)

// Client calls a remote context-service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client targeting baseURL (e.g. "http://context:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: sharedhttp.NewDefaultClient(),
	}
}

// InsertRequest describes one memory item to record for a CI.
type InsertRequest struct {
	ID         string   `json:"id,omitempty"`
	Kind       string   `json:"kind"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	Priority   int      `json:"priority,omitempty"`
	References []string `json:"references,omitempty"`
}

// Insert records a memory item for ci.
func (c *Client) Insert(ctx context.Context, ci string, req InsertRequest) (*contextapi.MemoryItem, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal memory item: %w", err)
	}
	var item contextapi.MemoryItem
	if err := c.post(ctx, "/ci/"+url.PathEscape(ci)+"/memory/", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Select recalls the packed, token-bounded injection for ci given
// contextTags.
func (c *Client) Select(ctx context.Context, ci string, contextTags []string) ([]contextapi.PackedItem, error) {
	path := "/ci/" + url.PathEscape(ci) + "/memory/select"
	if len(contextTags) > 0 {
		q := url.Values{}
		for _, t := range contextTags {
			q.Add("tag", t)
		}
		path += "?" + q.Encode()
	}

	var packed []contextapi.PackedItem
	if err := c.get(ctx, path, &packed); err != nil {
		return nil, err
	}
	return packed, nil
}

// Budget fetches ci's current budget ledger.
func (c *Client) Budget(ctx context.Context, ci string) (*contextapi.BudgetRecord, error) {
	var budget contextapi.BudgetRecord
	if err := c.get(ctx, "/ci/"+url.PathEscape(ci)+"/budget/", &budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

// RecordTurnRequest reports one turn's token consumption for ci.
type RecordTurnRequest struct {
	Model    string `json:"model"`
	Consumed int    `json:"consumed"`
	Dropped  int    `json:"dropped"`
	Output   string `json:"output,omitempty"`
}

// RecordTurn reports a turn's consumption and returns the updated
// ledger. A context_exhausted or ci_asleep AppError surfaces as a
// non-nil error alongside a nil record.
func (c *Client) RecordTurn(ctx context.Context, ci string, req RecordTurnRequest) (*contextapi.BudgetRecord, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn report: %w", err)
	}
	var budget contextapi.BudgetRecord
	if err := c.post(ctx, "/ci/"+url.PathEscape(ci)+"/budget/turn", body, &budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

// SunriseResult pairs the restored budget with the human-readable
// "what happened while you rested" delta.
type SunriseResult struct {
	Budget contextapi.BudgetRecord `json:"budget"`
	Delta  string                  `json:"delta"`
}

// Sunrise restores a sunset CI.
func (c *Client) Sunrise(ctx context.Context, ci string) (*SunriseResult, error) {
	var result SunriseResult
	if err := c.post(ctx, "/ci/"+url.PathEscape(ci)+"/budget/sunrise", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("context-service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("context-service returned %d: %s", resp.StatusCode, errBody.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
