// Package client implements datastorage.Client over HTTP against a
// remote datastorage service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"

	"github.com/ckoons/tekton-core/pkg/datastorage"
	"github.com/ckoons/tekton-core/pkg/datastorage/validation"
)

const userAgent = "tekton-datastorage-client"

// Config tunes the HTTP client built by New.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxConnections int
}

// HTTPClient is the HTTP-backed implementation of datastorage.Client.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ datastorage.Client = (*HTTPClient)(nil)

// New builds an HTTPClient against cfg.BaseURL, applying cfg.Timeout
// and cfg.MaxConnections on top of the shared client defaults when set.
func New(cfg Config) *HTTPClient {
	clientCfg := sharedhttp.DefaultClientConfig()
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	if cfg.MaxConnections > 0 {
		clientCfg.MaxIdleConns = cfg.MaxConnections
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		http:    sharedhttp.NewClient(clientCfg),
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("datastorage request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read datastorage response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var problem validation.RFC7807Problem
		if jsonErr := json.Unmarshal(respBody, &problem); jsonErr == nil && problem.Title != "" {
			return &problem
		}
		return fmt.Errorf("datastorage request failed: status %d", resp.StatusCode)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode datastorage response: %w", err)
	}
	return nil
}

func (c *HTTPClient) Put(ctx context.Context, doc datastorage.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	path := fmt.Sprintf("/api/v1/documents/%s/%s", url.PathEscape(doc.Collection), url.PathEscape(doc.ID))
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(payload), nil)
}

func (c *HTTPClient) Get(ctx context.Context, collection, id string) (*datastorage.Document, error) {
	path := fmt.Sprintf("/api/v1/documents/%s/%s", url.PathEscape(collection), url.PathEscape(id))
	var doc datastorage.Document
	err := c.do(ctx, http.MethodGet, path, nil, &doc)
	if problem, ok := err.(*validation.RFC7807Problem); ok && problem.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *HTTPClient) ListSince(ctx context.Context, collection string, since time.Time) ([]datastorage.Document, error) {
	path := fmt.Sprintf("/api/v1/documents/%s?since=%s", url.PathEscape(collection), url.QueryEscape(since.UTC().Format(time.RFC3339Nano)))
	var result struct {
		Data []datastorage.Document `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}
