package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
	"github.com/ckoons/tekton-core/pkg/metrics"
	"github.com/ckoons/tekton-core/pkg/shared/logging"
	"github.com/sirupsen/logrus"
)

var structValidator = validator.New()

// PolicyGate authorizes a registration request before the registry admits
// it, backed by an OPA bundle evaluation (see policy.go).
type PolicyGate interface {
	AllowRegister(ctx context.Context, component Component) error
}

// Snapshotter persists the registry's durable state so a restart can
// rebuild the catalog without re-registration (see snapshot.go).
type Snapshotter interface {
	Save(ctx context.Context, components []Component, bindings []FallbackBinding) error
	Load(ctx context.Context) ([]Component, []FallbackBinding, error)
}

// Registry is the in-memory component catalog backing the Service Registry
// & Routing Fabric. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
	bindings   []FallbackBinding
	thresholds HeartbeatThresholds
	policy     PolicyGate
	snapshot   Snapshotter
	logger     *logrus.Logger
	events     *EventBus
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithPolicyGate installs an OPA-backed (or any) registration policy check.
func WithPolicyGate(gate PolicyGate) Option {
	return func(r *Registry) { r.policy = gate }
}

// WithSnapshotter installs a durable-state backend.
func WithSnapshotter(s Snapshotter) Option {
	return func(r *Registry) { r.snapshot = s }
}

// WithHeartbeatThresholds overrides the default T1/T2 windows.
func WithHeartbeatThresholds(t HeartbeatThresholds) Option {
	return func(r *Registry) { r.thresholds = t }
}

// New builds a Registry, restoring any persisted state the configured
// Snapshotter holds.
func New(logger *logrus.Logger, opts ...Option) *Registry {
	r := &Registry{
		components: make(map[string]*Component),
		thresholds: DefaultHeartbeatThresholds(),
		logger:     logger,
		events:     NewEventBus(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restore loads persisted components and bindings via the configured
// Snapshotter, if any. Call once at startup before serving traffic.
func (r *Registry) Restore(ctx context.Context) error {
	if r.snapshot == nil {
		return nil
	}
	components, bindings, err := r.snapshot.Load(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("load registry snapshot", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range components {
		c := components[i]
		r.components[c.ID] = &c
	}
	r.bindings = bindings
	return nil
}

func (r *Registry) persistLocked(ctx context.Context) {
	if r.snapshot == nil {
		return
	}
	components := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		components = append(components, *c)
	}
	if err := r.snapshot.Save(ctx, components, r.bindings); err != nil {
		r.logger.WithFields(logging.NewFields().Error(err).Logrus()).
			Error("failed to persist registry snapshot")
	}
}

// Register admits a new component in StateRegistering, running it through
// struct validation and the policy gate first. component.InstanceUUID is
// re-generated by the caller on every process start; it is what lets a
// failed instance recover by re-registering under the same id. A live
// (non-failed) component already holding id is a conflict — Register never
// merges into it.
func (r *Registry) Register(ctx context.Context, component Component) error {
	if err := structValidator.Struct(component); err != nil {
		return apperrors.NewValidationError("component descriptor failed validation: " + err.Error())
	}

	if r.policy != nil {
		if err := r.policy.AllowRegister(ctx, component); err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "registration denied by policy")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, found := r.components[component.ID]; found && existing.State != StateFailed {
		return apperrors.NewConflictError("component " + component.ID + " already has a live instance")
	}

	component.State = StateRegistering
	component.Health = HealthHealthy
	component.RegisteredAt = now
	component.LastHeartbeat = now
	r.components[component.ID] = &component

	metrics.ComponentsRegistered.WithLabelValues(string(StateRegistering)).Inc()
	r.persistLocked(ctx)
	r.events.Publish(Event{Type: EventComponentRegistered, ComponentID: component.ID, At: now})

	r.logger.WithFields(logging.NewFields().Component(component.ID).Operation("register").Logrus()).
		Info("component registered")
	return nil
}

// Unregister transitions a component to StateUnregistered and removes it
// from the catalog. instanceUUID must match the component's current
// instance; a mismatch means the caller holds a stale handle to an
// instance that has already been superseded.
func (r *Registry) Unregister(ctx context.Context, id, instanceUUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	component, found := r.components[id]
	if !found {
		return apperrors.NewNotFoundError("component " + id)
	}
	if component.InstanceUUID != instanceUUID {
		return apperrors.NewStaleError("component " + id)
	}

	if _, err := Transition(component.State, StateUnregistered); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeConflict, "cannot unregister component")
	}

	delete(r.components, id)
	metrics.ComponentsRegistered.WithLabelValues(string(component.State)).Dec()
	r.persistLocked(ctx)
	r.events.Publish(Event{Type: EventComponentUnregistered, ComponentID: id, At: time.Now()})
	return nil
}

// SetState transitions a component to a new lifecycle state, validating
// the edge against the state machine.
func (r *Registry) SetState(ctx context.Context, id string, to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	component, found := r.components[id]
	if !found {
		return apperrors.NewNotFoundError("component " + id)
	}

	next, err := Transition(component.State, to)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeConflict, "invalid state transition")
	}

	metrics.ComponentsRegistered.WithLabelValues(string(component.State)).Dec()
	component.State = next
	metrics.ComponentsRegistered.WithLabelValues(string(next)).Inc()
	r.persistLocked(ctx)
	r.events.Publish(Event{Type: EventComponentStateChanged, ComponentID: id, At: time.Now()})
	return nil
}

// Heartbeat records liveness for a component, reclassifying its health from
// the elapsed interval since its last heartbeat, and resets it to StateReady
// if it had lapsed into StateDegraded while unheard-from. instanceUUID must
// match the component's current instance; a mismatch rejects the heartbeat
// as stale rather than reviving a superseded registration.
func (r *Registry) Heartbeat(ctx context.Context, id, instanceUUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	component, found := r.components[id]
	if !found {
		return apperrors.NewNotFoundError("component " + id)
	}
	if component.InstanceUUID != instanceUUID {
		return apperrors.NewStaleError("component " + id)
	}

	component.LastHeartbeat = time.Now()
	component.Health = HealthHealthy
	if component.State == StateDegraded {
		component.State = StateReady
	}

	metrics.HeartbeatsReceived.WithLabelValues(id).Inc()
	return nil
}

// sweepHealth reclassifies every component's Health from elapsed heartbeat
// age, demoting a ready component to degraded once it crosses the
// unhealthy threshold. Intended to run on a ticker (see health.go).
func (r *Registry) sweepHealth(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.components {
		age := now.Sub(c.LastHeartbeat)
		c.Health = ClassifyHealth(age, r.thresholds)
		if c.Health == HealthUnhealthy && c.State == StateReady {
			c.State = StateDegraded
			r.events.Publish(Event{Type: EventComponentStateChanged, ComponentID: c.ID, At: now})
		}
	}
}

// Get returns a copy of a registered component.
func (r *Registry) Get(id string) (Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	component, found := r.components[id]
	if !found {
		return Component{}, apperrors.NewNotFoundError("component " + id)
	}
	return *component, nil
}

// List returns a copy of every registered component.
func (r *Registry) List() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RegisterFallback records that fallbackID may serve capability when
// primaryID is unavailable, ordered by priority (lower runs first).
func (r *Registry) RegisterFallback(binding FallbackBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bindings = append(r.bindings, binding)
	sort.Slice(r.bindings, func(i, j int) bool { return r.bindings[i].Priority < r.bindings[j].Priority })
}

// Resolve returns the best available component for capability: the highest
// priority StateReady provider, or — if none is ready — the first fallback
// binding whose FallbackID is ready.
func (r *Registry) Resolve(capability string) (Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Component
	for _, c := range r.components {
		if c.State != StateReady {
			continue
		}
		for _, cap := range c.Capabilities {
			if cap.Name == capability {
				candidates = append(candidates, c)
				break
			}
		}
	}

	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool {
			return priorityFor(candidates[i], capability) < priorityFor(candidates[j], capability)
		})
		return *candidates[0], nil
	}

	for _, binding := range r.bindings {
		if binding.Capability != capability {
			continue
		}
		if fallback, found := r.components[binding.FallbackID]; found && fallback.State == StateReady {
			return *fallback, nil
		}
	}

	return Component{}, apperrors.NewNoFallbackError(capability)
}

func priorityFor(c *Component, capability string) int {
	for _, cap := range c.Capabilities {
		if cap.Name == capability {
			return cap.Priority
		}
	}
	return 0
}
