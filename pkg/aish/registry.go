package aish

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
)

// ForwardStore persists the forwarding table across shell restarts.
type ForwardStore interface {
	Save(ctx context.Context, forwards map[string]ForwardRule) error
	Load(ctx context.Context) (map[string]ForwardRule, error)
}

// Registry is aish's own CI registry: CI entries, their forwarding rules,
// and live terminal sessions. It is distinct from (and a consumer of) the
// Service Registry in pkg/registry, which it asks to resolve a CI's
// owning component to a transport endpoint.
type Registry struct {
	mu        sync.RWMutex
	cis       map[string]*CIEntry
	forwards  map[string]ForwardRule
	terminals map[string]*TerminalSession
	store     ForwardStore
	logger    *logrus.Logger
}

// New builds an empty Registry.
func New(logger *logrus.Logger, store ForwardStore) *Registry {
	return &Registry{
		cis:       make(map[string]*CIEntry),
		forwards:  make(map[string]ForwardRule),
		terminals: make(map[string]*TerminalSession),
		store:     store,
		logger:    logger,
	}
}

// Restore loads the forwarding table from the configured store, if any.
func (r *Registry) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	forwards, err := r.store.Load(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("load forwarding table", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if forwards != nil {
		r.forwards = forwards
	}
	return nil
}

func (r *Registry) persistLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := r.store.Save(ctx, r.forwards); err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("failed to persist forwarding table")
	}
}

// RegisterCI adds or replaces a CI entry.
func (r *Registry) RegisterCI(entry CIEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cis[entry.CIName] = &entry
}

// GetCI returns the named CI entry.
func (r *Registry) GetCI(name string) (CIEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cis[name]
	if !ok {
		return CIEntry{}, apperrors.NewNotFoundError("ci " + name)
	}
	return *entry, nil
}

// RegisterTerminal adds a new terminal session.
func (r *Registry) RegisterTerminal(terminalID, name string, purposes []string) *TerminalSession {
	session := NewTerminalSession(terminalID, name, purposes)
	r.mu.Lock()
	r.terminals[terminalID] = session
	r.mu.Unlock()
	return session
}

// RemoveTerminal drops a terminal session. Any forwards pointing at it are
// left in the table (so the operator can see they existed) but will be
// flagged invalid on the next resolution attempt.
func (r *Registry) RemoveTerminal(terminalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.terminals, terminalID)
}

// GetTerminal returns the named terminal session.
func (r *Registry) GetTerminal(terminalID string) (*TerminalSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.terminals[terminalID]
	if !ok {
		return nil, apperrors.NewNotFoundError("terminal " + terminalID)
	}
	return session, nil
}

// ListTerminals returns every live terminal session.
func (r *Registry) ListTerminals() []*TerminalSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TerminalSession, 0, len(r.terminals))
	for _, session := range r.terminals {
		out = append(out, session)
	}
	return out
}

// Forward creates a forwarding rule from ciName to an existing terminal.
// Creating a forward to a non-existent terminal, or one that would make ci
// forward to itself, is refused.
func (r *Registry) Forward(ctx context.Context, ciName, terminalID string, jsonWrap bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ciName == terminalID {
		return apperrors.New(apperrors.ErrorTypeConflict, "forwarding-cycle: a ci cannot forward to itself")
	}
	if _, ok := r.terminals[terminalID]; !ok {
		return apperrors.NewNotFoundError("terminal " + terminalID)
	}

	rule := ForwardRule{DestCI: ciName, Terminal: terminalID, JSON: jsonWrap, CreatedAt: time.Now()}
	r.forwards[ciName] = rule
	r.persistLocked(ctx)
	return nil
}

// Unforward removes ciName's forwarding rule, if any.
func (r *Registry) Unforward(ctx context.Context, ciName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forwards[ciName]; !ok {
		return apperrors.NewNotFoundError("forward for " + ciName)
	}
	delete(r.forwards, ciName)
	r.persistLocked(ctx)
	return nil
}

// ListForwards returns the entire forwarding table.
func (r *Registry) ListForwards() map[string]ForwardRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ForwardRule, len(r.forwards))
	for k, v := range r.forwards {
		out[k] = v
	}
	return out
}

// ResolvedTarget is the outcome of resolving a token to a destination: a
// terminal mailbox delivery, or a direct endpoint call.
type ResolvedTarget struct {
	Terminal string
	JSON     bool
	Endpoint string
}

// Resolve applies the resolution algorithm of §4.2: if ciName has an
// active forward to a live terminal, deliver there (JSON-wrapped if the
// rule says so); otherwise resolve to the CI's declared endpoint.
func (r *Registry) Resolve(ciName string) (ResolvedTarget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rule, ok := r.forwards[ciName]; ok {
		if _, ok := r.terminals[rule.Terminal]; !ok {
			if r.logger != nil {
				r.logger.WithField("ci", ciName).WithField("terminal", rule.Terminal).
					Warn("forward target terminal no longer exists")
			}
			return ResolvedTarget{}, apperrors.NewNotFoundError("forward target terminal " + rule.Terminal)
		}
		return ResolvedTarget{Terminal: rule.Terminal, JSON: rule.JSON}, nil
	}

	entry, ok := r.cis[ciName]
	if !ok {
		return ResolvedTarget{}, apperrors.NewNotFoundError("ci " + ciName)
	}
	return ResolvedTarget{Endpoint: entry.Endpoint}, nil
}
