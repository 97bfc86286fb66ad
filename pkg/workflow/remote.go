package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ckoons/tekton-core/pkg/executor"
	registryclient "github.com/ckoons/tekton-core/pkg/registry/client"
	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
	"github.com/ckoons/tekton-core/pkg/transport"
)

// RemoteDispatch builds an executor.Handler that resolves a task's
// component through the Service Registry and executes it as a
// request/response envelope, for tasks the orchestrator has no
// statically-registered verb for. Verb is expected in "component.action"
// form (see Verb); the component segment names the capability to
// resolve and the action segment becomes the envelope's Purpose.
func RemoteDispatch(registry *registryclient.Client) executor.Handler {
	httpClient := sharedhttp.NewDefaultClient()

	return func(ctx context.Context, req executor.TaskRequest) (map[string]interface{}, error) {
		capability, action, ok := splitVerb(req.Verb)
		if !ok {
			return nil, fmt.Errorf("remote dispatch: malformed verb %q", req.Verb)
		}

		component, err := registry.Resolve(ctx, capability)
		if err != nil {
			return nil, fmt.Errorf("remote dispatch: resolving %q: %w", capability, err)
		}

		body, err := json.Marshal(req.Parameters)
		if err != nil {
			return nil, fmt.Errorf("remote dispatch: marshaling parameters: %w", err)
		}

		tr := transport.NewRequestResponse(component.Endpoint, httpClient)
		reply, err := tr.Send(ctx, transport.Envelope{
			From:    "workflow-orchestrator",
			To:      component.ID,
			Purpose: action,
			Body:    body,
		})
		if err != nil {
			return nil, fmt.Errorf("remote dispatch: calling %s: %w", component.ID, err)
		}

		if reply == nil || len(reply.Body) == 0 {
			return map[string]interface{}{}, nil
		}
		var out map[string]interface{}
		if err := json.Unmarshal(reply.Body, &out); err != nil {
			return nil, fmt.Errorf("remote dispatch: decoding reply from %s: %w", component.ID, err)
		}
		return out, nil
	}
}

func splitVerb(verb string) (component, action string, ok bool) {
	idx := strings.LastIndex(verb, ".")
	if idx <= 0 || idx == len(verb)-1 {
		return "", "", false
	}
	return verb[:idx], verb[idx+1:], true
}
