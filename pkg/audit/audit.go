// Package audit buffers Landmark events — the significant,
// cross-cutting moments every subsystem reports (a CI sunsetting, a
// catalog eviction, a budget breach, a checkpoint taken, a component
// failing) — and flushes them to a datastorage.Client in batches,
// grounded on the teacher's buffered audit repository contract.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/datastorage"
	"github.com/ckoons/tekton-core/pkg/datastorage/validation"
)

// EventType classifies a landmark moment.
type EventType string

const (
	EventSunsetTriggered     EventType = "sunset_triggered"
	EventCatalogFullEviction EventType = "catalog_full_eviction"
	EventBudgetExceeded      EventType = "budget_exceeded"
	EventCheckpointTaken     EventType = "checkpoint_taken"
	EventComponentFailed     EventType = "component_failed"
)

// KnownEventTypes lists every EventType audit.Record accepts.
var KnownEventTypes = []string{
	string(EventSunsetTriggered),
	string(EventCatalogFullEviction),
	string(EventBudgetExceeded),
	string(EventCheckpointTaken),
	string(EventComponentFailed),
}

// Collection is the datastorage.Client collection landmark events are
// stored and queried under.
const Collection = "audit-events"

// Event is one landmark moment.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Source     string    `json:"source"` // CI name or component name the event concerns
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Filter narrows Query's result set. All fields are optional; the zero
// value matches every retained event.
type Filter struct {
	Type   EventType
	Source string
	Since  time.Time
}

func (f Filter) matches(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if !f.Since.IsZero() && e.OccurredAt.Before(f.Since) {
		return false
	}
	return true
}

func validateEvent(e Event) error {
	if ve := validation.ValidateRequired("audit_event", map[string]string{
		"source": e.Source,
	}); ve != nil {
		return ve
	}
	if ve := validation.ValidateOneOf("audit_event", "type", string(e.Type), KnownEventTypes...); ve != nil {
		return ve
	}
	return nil
}

// Store buffers recorded events in memory, retaining the most recent
// maxRetained for Query, and flushes unflushed events to a
// datastorage.Client once batchSize accumulate (or on an explicit
// Flush call, e.g. at shutdown).
type Store struct {
	mu         sync.Mutex
	events     []Event
	flushed    int
	maxRetain  int
	batchSize  int
	client     datastorage.Client
	logger     *logrus.Logger
}

// NewStore builds a Store flushing to client in batches of batchSize,
// retaining at most maxRetain events in memory for Query.
func NewStore(client datastorage.Client, batchSize, maxRetain int, logger *logrus.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxRetain <= 0 {
		maxRetain = 500
	}
	return &Store{
		client:    client,
		batchSize: batchSize,
		maxRetain: maxRetain,
		logger:    logger,
	}
}

// Record validates and buffers event, assigning an ID and OccurredAt
// if unset, flushing automatically once the unflushed count reaches
// the configured batch size.
func (s *Store) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := validateEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	s.events = append(s.events, e)
	s.trimLocked()
	pending := len(s.events) - s.flushed
	s.mu.Unlock()

	if pending >= s.batchSize {
		if err := s.Flush(ctx); err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Warn("audit flush failed")
			}
			return err
		}
	}
	return nil
}

// trimLocked drops the oldest events once retention exceeds maxRetain.
// Must be called with s.mu held.
func (s *Store) trimLocked() {
	overflow := len(s.events) - s.maxRetain
	if overflow <= 0 {
		return
	}
	s.events = s.events[overflow:]
	s.flushed -= overflow
	if s.flushed < 0 {
		s.flushed = 0
	}
}

// Flush writes every unflushed event to the Store's datastorage.Client.
// A nil client makes Flush a no-op, so a Store can be used purely as an
// in-memory Query surface in tests or single-process deployments.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := append([]Event(nil), s.events[s.flushed:]...)
	s.mu.Unlock()

	if s.client == nil || len(pending) == 0 {
		s.mu.Lock()
		s.flushed = len(s.events)
		s.mu.Unlock()
		return nil
	}

	for _, e := range pending {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit event %s: %w", e.ID, err)
		}
		doc := datastorage.Document{
			ID:         e.ID,
			Collection: Collection,
			CreatedAt:  e.OccurredAt,
			Payload:    payload,
		}
		if err := s.client.Put(ctx, doc); err != nil {
			return fmt.Errorf("flush audit event %s: %w", e.ID, err)
		}
	}

	s.mu.Lock()
	s.flushed = len(s.events)
	s.mu.Unlock()
	return nil
}

// Query returns every retained event matching f, oldest first. It
// searches only in-memory retained events (both flushed and pending);
// historical events evicted by retention are reachable through
// pkg/datastorage/reconstruction against the durable store instead.
func (s *Store) Query(f Filter) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if f.matches(e) {
			matches = append(matches, e)
		}
	}
	return matches
}

// LastError returns the most recently recorded EventComponentFailed
// event for source, or nil if none is retained. This backs the
// status APIs' "last error" surface.
func (s *Store) LastError(source string) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.Type == EventComponentFailed && (source == "" || e.Source == source) {
			return &e
		}
	}
	return nil
}
