package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/gojq"
)

var substitutionRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Variables is the substitution environment for a single task dispatch:
// the execution's input parameters and every upstream task's recorded
// output, addressed as ${parameters.NAME} and ${tasks.ID.output.FIELD}.
type Variables struct {
	Parameters map[string]interface{}
	Tasks      map[string]TaskState
}

func (v Variables) asMap() map[string]interface{} {
	tasks := make(map[string]interface{}, len(v.Tasks))
	for id, state := range v.Tasks {
		tasks[id] = map[string]interface{}{
			"output": state.Output,
			"status": string(state.Status),
		}
	}
	return map[string]interface{}{
		"parameters": v.Parameters,
		"tasks":      tasks,
	}
}

// Substitute resolves every ${...} reference within input against vars.
// A value that is exactly one reference (e.g. "${parameters.count}")
// preserves its native type (number, bool, map, slice); a reference
// embedded in a larger string is stringified in place.
func Substitute(input map[string]interface{}, vars Variables) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(input))
	for k, v := range input {
		out, err := substituteValue(v, vars)
		if err != nil {
			return nil, fmt.Errorf("substituting %q: %w", k, err)
		}
		resolved[k] = out
	}
	return resolved, nil
}

func substituteValue(v interface{}, vars Variables) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return substituteString(val, vars)
	case map[string]interface{}:
		return Substitute(val, vars)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			resolved, err := substituteValue(item, vars)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, vars Variables) (interface{}, error) {
	matches := substitutionRef.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		expr := s[matches[0][2]:matches[0][3]]
		return evalRef(expr, vars)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		expr := s[m[2]:m[3]]
		val, err := evalRef(expr, vars)
		if err != nil {
			return nil, err
		}
		b.WriteString(stringify(val))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

func evalRef(expr string, vars Variables) (interface{}, error) {
	query, err := gojq.Parse("." + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", expr, err)
	}
	iter := query.Run(vars.asMap())
	v, ok := iter.Next()
	if !ok || v == nil {
		return nil, fmt.Errorf("reference %q resolved to nothing", expr)
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("reference %q: %w", expr, err)
	}
	return v, nil
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
