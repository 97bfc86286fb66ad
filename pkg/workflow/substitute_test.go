package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute_ResolvesParameterReference(t *testing.T) {
	vars := Variables{Parameters: map[string]interface{}{"env": "staging"}}

	out, err := Substitute(map[string]interface{}{"target": "${parameters.env}"}, vars)
	require.NoError(t, err)
	assert.Equal(t, "staging", out["target"])
}

func TestSubstitute_PreservesNativeTypeForSoleReference(t *testing.T) {
	vars := Variables{Parameters: map[string]interface{}{"replicas": 3}}

	out, err := Substitute(map[string]interface{}{"count": "${parameters.replicas}"}, vars)
	require.NoError(t, err)
	assert.EqualValues(t, 3, out["count"])
}

func TestSubstitute_ResolvesTaskOutputReference(t *testing.T) {
	vars := Variables{
		Tasks: map[string]TaskState{
			"build": {Status: TaskSucceeded, Output: map[string]interface{}{"path": "/artifacts/app.tar"}},
		},
	}

	out, err := Substitute(map[string]interface{}{"artifact": "${tasks.build.output.path}"}, vars)
	require.NoError(t, err)
	assert.Equal(t, "/artifacts/app.tar", out["artifact"])
}

func TestSubstitute_InterpolatesWithinLargerString(t *testing.T) {
	vars := Variables{Parameters: map[string]interface{}{"env": "prod"}}

	out, err := Substitute(map[string]interface{}{"url": "https://${parameters.env}.example.com"}, vars)
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com", out["url"])
}

func TestSubstitute_RecursesThroughNestedStructures(t *testing.T) {
	vars := Variables{Parameters: map[string]interface{}{"name": "app"}}

	out, err := Substitute(map[string]interface{}{
		"spec": map[string]interface{}{
			"names": []interface{}{"${parameters.name}", "static"},
		},
	}, vars)
	require.NoError(t, err)

	spec := out["spec"].(map[string]interface{})
	names := spec["names"].([]interface{})
	assert.Equal(t, "app", names[0])
	assert.Equal(t, "static", names[1])
}

func TestSubstitute_ErrorsOnUnresolvableReference(t *testing.T) {
	vars := Variables{Parameters: map[string]interface{}{}}

	_, err := Substitute(map[string]interface{}{"x": "${parameters.missing}"}, vars)
	assert.Error(t, err)
}

func TestSubstitute_LeavesPlainValuesUntouched(t *testing.T) {
	vars := Variables{}
	out, err := Substitute(map[string]interface{}{"n": 42, "flag": true}, vars)
	require.NoError(t, err)
	assert.EqualValues(t, 42, out["n"])
	assert.Equal(t, true, out["flag"])
}
