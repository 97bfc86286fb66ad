package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate() Template {
	return Template{Definition: Definition{
		ID:               "rollout",
		ParametersSchema: map[string]string{"service": "string", "replicas": "number"},
		Tasks: map[string]TaskDef{
			"deploy": {ID: "deploy", Component: "ci", Action: "deploy", OnError: OnErrorFail},
		},
	}}
}

func TestInstantiate_AcceptsMatchingValues(t *testing.T) {
	def, err := Instantiate(sampleTemplate(), "exec-1", map[string]interface{}{
		"service": "billing", "replicas": float64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "rollout-exec-1", def.ID)
	assert.Contains(t, def.Tasks, "deploy")
}

func TestInstantiate_RejectsMissingParameter(t *testing.T) {
	_, err := Instantiate(sampleTemplate(), "exec-1", map[string]interface{}{"service": "billing"})
	assert.Error(t, err)
}

func TestInstantiate_RejectsWrongType(t *testing.T) {
	_, err := Instantiate(sampleTemplate(), "exec-1", map[string]interface{}{
		"service": "billing", "replicas": "three",
	})
	assert.Error(t, err)
}
