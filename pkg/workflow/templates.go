package workflow

import (
	"fmt"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
)

// Template is a reusable Definition shape: its task graph is fixed, but
// callers supply values for its parameters_schema before instantiating a
// concrete Definition.
type Template struct {
	Definition
}

// Instantiate validates values against template's parameters_schema and
// returns a Definition with a unique id, ready to Validate and execute.
// The schema only names required parameter types (string, number, bool,
// object, array); it does not constrain task content.
func Instantiate(template Template, executionSuffix string, values map[string]interface{}) (Definition, error) {
	for name, kind := range template.ParametersSchema {
		v, ok := values[name]
		if !ok {
			return Definition{}, apperrors.NewValidationError(fmt.Sprintf("missing required parameter %q", name))
		}
		if !matchesKind(v, kind) {
			return Definition{}, apperrors.NewValidationError(fmt.Sprintf("parameter %q: expected %s, got %T", name, kind, v))
		}
	}

	def := template.Definition
	def.ID = fmt.Sprintf("%s-%s", template.ID, executionSuffix)
	return def, nil
}

func matchesKind(v interface{}, kind string) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "bool", "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]interface{})
		return ok
	case "array":
		_, ok := v.([]interface{})
		return ok
	default:
		return true
	}
}
