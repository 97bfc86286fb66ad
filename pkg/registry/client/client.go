// Package client provides a thin HTTP wrapper for calling the Service
// Registry from other Tekton components (aish, workflow orchestrator,
// context core) to register themselves and resolve capabilities.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
	"github.com/ckoons/tekton-core/pkg/registry"
)

// Client calls a remote registry-service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client targeting baseURL (e.g. "http://registry:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: sharedhttp.NewDefaultClient(),
	}
}

// Register registers component with the remote registry.
func (c *Client) Register(ctx context.Context, component registry.Component) error {
	body, err := json.Marshal(component)
	if err != nil {
		return fmt.Errorf("failed to marshal component: %w", err)
	}
	return c.post(ctx, "/registry/components", body, nil)
}

// Heartbeat sends a liveness ping for id, scoped to instanceUUID so a
// superseded instance's heartbeats are rejected as stale rather than
// reviving its registration.
func (c *Client) Heartbeat(ctx context.Context, id, instanceUUID string) error {
	return c.post(ctx, "/registry/components/"+id+"/heartbeat?instance_uuid="+instanceUUID, nil, nil)
}

// Unregister withdraws id from the registry, scoped to instanceUUID.
func (c *Client) Unregister(ctx context.Context, id, instanceUUID string) error {
	return c.delete(ctx, "/registry/components/"+id+"?instance_uuid="+instanceUUID)
}

// Resolve asks the registry for the best available provider of capability.
func (c *Client) Resolve(ctx context.Context, capability string) (registry.Component, error) {
	var component registry.Component
	err := c.get(ctx, "/registry/resolve/"+capability, &component)
	return component, err
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

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("registry returned %d: %s", resp.StatusCode, errBody.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
