package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ckoons/tekton-core/pkg/executor"
)

var dispatchTracer = otel.Tracer("github.com/ckoons/tekton-core/pkg/workflow")

// Dispatcher resolves a task to an executor.Handler call. Verb is the
// task's "component.action" pair, letting one executor.Registry serve
// every component the orchestrator talks to.
type Dispatcher struct {
	registry *executor.Registry
	tracer   trace.Tracer
}

// NewDispatcher wraps an executor.Registry for task dispatch.
func NewDispatcher(registry *executor.Registry) *Dispatcher {
	return &Dispatcher{registry: registry, tracer: dispatchTracer}
}

// Verb is the executor dispatch key for a task.
func Verb(task TaskDef) string {
	return fmt.Sprintf("%s.%s", task.Component, task.Action)
}

// Dispatch substitutes task.Input against vars and executes it, returning
// its output bindings. A span covers the substitution and the executor
// call so a slow or failing component shows up against the execution and
// task that invoked it, not just the orchestrator's own scheduling loop.
func (d *Dispatcher) Dispatch(ctx context.Context, executionID string, task TaskDef, vars Variables) (map[string]interface{}, error) {
	verb := Verb(task)
	ctx, span := d.tracer.Start(ctx, "workflow.dispatch",
		trace.WithAttributes(
			attribute.String("execution_id", executionID),
			attribute.String("task_id", task.ID),
			attribute.String("component", task.Component),
			attribute.String("action", task.Action),
		),
	)
	defer span.End()

	input, err := Substitute(task.Input, vars)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "template substitution failed")
		return nil, err
	}

	out, err := d.registry.Execute(ctx, executor.TaskRequest{Verb: verb, Parameters: input})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task dispatch failed")
		return nil, err
	}
	return out, nil
}
