// Package executor provides the generic named-handler dispatch table used
// by the workflow orchestrator to look up the Go function backing a task's
// verb (invoke, summarize, analyze, fallback, transform, ...).
package executor

import (
	"context"
	"fmt"
	"sync"
)

// TaskRequest is the verb-agnostic input to a Handler: the task's
// parameters after template substitution has resolved every
// ${tasks.X.output.Y} and ${parameters.*} reference.
type TaskRequest struct {
	Verb       string
	Parameters map[string]interface{}
}

// Handler executes one task verb and returns its output bindings.
type Handler func(ctx context.Context, req TaskRequest) (map[string]interface{}, error)

// Registry is a concurrency-safe verb-to-Handler dispatch table.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// SetFallback installs the handler used for verbs with no exact
// registration, letting the orchestrator route dynamically-registered
// components (resolved through the Service Registry at dispatch time)
// without pre-binding every component.action pair ahead of time. Pass
// nil to remove a previously installed fallback.
func (r *Registry) SetFallback(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = handler
}

// Register binds verb to handler, failing if verb is already bound.
func (r *Registry) Register(verb string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[verb]; exists {
		return fmt.Errorf("verb %q is already registered", verb)
	}
	r.handlers[verb] = handler
	return nil
}

// Unregister removes verb's handler, doing nothing if it isn't bound.
func (r *Registry) Unregister(verb string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, verb)
}

// IsRegistered reports whether verb has a bound handler.
func (r *Registry) IsRegistered(verb string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[verb]
	return exists
}

// Count returns the number of registered verbs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// RegisteredVerbs returns all currently registered verb names.
func (r *Registry) RegisteredVerbs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	verbs := make([]string, 0, len(r.handlers))
	for verb := range r.handlers {
		verbs = append(verbs, verb)
	}
	return verbs
}

// Execute dispatches req to its verb's handler, or to the fallback handler
// when none is bound; it fails only if neither exists.
func (r *Registry) Execute(ctx context.Context, req TaskRequest) (map[string]interface{}, error) {
	r.mu.RLock()
	handler, exists := r.handlers[req.Verb]
	fallback := r.fallback
	r.mu.RUnlock()

	if !exists {
		if fallback != nil {
			return fallback(ctx, req)
		}
		return nil, fmt.Errorf("unknown task verb: %s", req.Verb)
	}
	return handler(ctx, req)
}
