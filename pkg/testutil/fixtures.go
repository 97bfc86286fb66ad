// Package testutil centralizes test fixture construction and suite
// setup shared across pkg/registry, pkg/workflow, and pkg/contextapi
// suites, grounded on the teacher's own pkg/testutil factory/builder
// pair.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/ckoons/tekton-core/pkg/contextapi"
	"github.com/ckoons/tekton-core/pkg/registry"
	"github.com/ckoons/tekton-core/pkg/workflow"
)

// Default test values, named rather than scattered as magic literals.
const (
	DefaultTestNamespace  = "default"
	DefaultComponentType  = "test-component"
	DefaultCapability     = "test.capability"
	DefaultMaxConcurrent  = 5
	DefaultCheckpointMS   = 30_000
	DefaultMemoryPriority = 5
)

// Factory builds ready-to-use fixtures for the registry, workflow, and
// context/memory domains.
type Factory struct{}

// NewFactory builds a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// StandardComponent returns a healthy, ready-state Component fixture.
func (f *Factory) StandardComponent() registry.Component {
	return registry.Component{
		ID:            uuid.NewString(),
		InstanceUUID:  uuid.NewString(),
		Type:          DefaultComponentType,
		Namespace:     DefaultTestNamespace,
		Endpoint:      "http://localhost:9000",
		Capabilities:  []registry.Capability{{Name: DefaultCapability, Priority: 1}},
		State:         registry.StateReady,
		Health:        registry.HealthHealthy,
		RegisteredAt:  time.Now(),
		LastHeartbeat: time.Now(),
	}
}

// DegradedComponent returns a Component fixture in the degraded state,
// for fallback-routing and health-transition tests.
func (f *Factory) DegradedComponent() registry.Component {
	c := f.StandardComponent()
	c.State = registry.StateDegraded
	c.Health = registry.Health("degraded")
	return c
}

// SingleTaskDefinition returns a minimal one-task Workflow Definition.
func (f *Factory) SingleTaskDefinition() workflow.Definition {
	taskID := "task-1"
	return workflow.Definition{
		ID:                 uuid.NewString(),
		Name:               "test-workflow",
		Version:            "v1",
		Tasks:              map[string]workflow.TaskDef{taskID: f.task(taskID, nil)},
		MaxConcurrentTasks: DefaultMaxConcurrent,
		CheckpointInterval: DefaultCheckpointMS * time.Millisecond,
	}
}

// ChainedTaskDefinition returns a three-task Workflow Definition where
// each task depends on the previous one, for DAG/ordering tests.
func (f *Factory) ChainedTaskDefinition() workflow.Definition {
	tasks := map[string]workflow.TaskDef{
		"task-1": f.task("task-1", nil),
		"task-2": f.task("task-2", []string{"task-1"}),
		"task-3": f.task("task-3", []string{"task-2"}),
	}
	return workflow.Definition{
		ID:                 uuid.NewString(),
		Name:               "test-chained-workflow",
		Version:            "v1",
		Tasks:              tasks,
		MaxConcurrentTasks: DefaultMaxConcurrent,
		CheckpointInterval: DefaultCheckpointMS * time.Millisecond,
	}
}

func (f *Factory) task(id string, dependsOn []string) workflow.TaskDef {
	return workflow.TaskDef{
		ID:        id,
		Name:      id,
		Component: DefaultComponentType,
		Action:    "run",
		Input:     map[string]interface{}{"key": "value"},
		DependsOn: dependsOn,
		OnError:   workflow.OnErrorFail,
	}
}

// RunningExecution returns a freshly-started Execution fixture for def.
func (f *Factory) RunningExecution(def workflow.Definition) *workflow.Execution {
	states := make(map[string]workflow.TaskState, len(def.Tasks))
	for id := range def.Tasks {
		states[id] = workflow.TaskState{Status: workflow.TaskPending}
	}
	return &workflow.Execution{
		ExecutionID: uuid.NewString(),
		WorkflowID:  def.ID,
		Inputs:      map[string]interface{}{},
		Status:      workflow.ExecutionRunning,
		StartedAt:   time.Now(),
		TaskStates:  states,
	}
}

// StandardMemoryItem returns a MemoryItem fixture with a non-zero TTL.
func (f *Factory) StandardMemoryItem() *contextapi.MemoryItem {
	return &contextapi.MemoryItem{
		ID:        uuid.NewString(),
		CISource:  "test-ci",
		Kind:      contextapi.KindInsight,
		Summary:   "test memory item",
		Content:   "test memory item content",
		Tokens:    42,
		Tags:      []string{"test"},
		Priority:  DefaultMemoryPriority,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}
