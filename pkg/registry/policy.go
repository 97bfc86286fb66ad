package registry

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// OPAPolicyGate evaluates a Rego policy bundle to decide whether a
// component may register. The policy is expected to define a boolean
// `data.tekton.registry.allow` rule.
type OPAPolicyGate struct {
	query rego.PreparedEvalQuery
}

// NewOPAPolicyGate compiles the given Rego module source into a reusable
// prepared query.
func NewOPAPolicyGate(ctx context.Context, moduleName, moduleSrc string) (*OPAPolicyGate, error) {
	query, err := rego.New(
		rego.Query("data.tekton.registry.allow"),
		rego.Module(moduleName, moduleSrc),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile registry policy: %w", err)
	}
	return &OPAPolicyGate{query: query}, nil
}

// AllowRegister evaluates the compiled policy against the candidate
// component, denying registration unless the policy's allow rule is true.
func (g *OPAPolicyGate) AllowRegister(ctx context.Context, component Component) error {
	input := map[string]interface{}{
		"id":           component.ID,
		"type":         component.Type,
		"namespace":    component.Namespace,
		"capabilities": capabilityNames(component.Capabilities),
	}

	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return fmt.Errorf("policy produced no decision")
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok || !allowed {
		return fmt.Errorf("component %s in namespace %s is not permitted to register", component.ID, component.Namespace)
	}
	return nil
}

func capabilityNames(caps []Capability) []string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.Name
	}
	return names
}

// AllowAllGate is a no-op PolicyGate used when no OPA bundle is configured.
type AllowAllGate struct{}

// AllowRegister always permits registration.
func (AllowAllGate) AllowRegister(ctx context.Context, component Component) error {
	return nil
}
