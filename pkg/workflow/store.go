package workflow

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
)

// Repository is the persistence contract the orchestrator depends on.
// *Store is the in-memory, single-instance implementation; a durable
// deployment substitutes pkg/datastorage/repository/workflow's
// Postgres-backed implementation without the orchestrator or its HTTP
// layer knowing the difference.
type Repository interface {
	SaveDefinition(ctx context.Context, def Definition) error
	GetDefinition(id string) (Definition, error)
	ListDefinitions() []Definition
	SaveExecution(ctx context.Context, exec *Execution) error
	GetExecution(id string) (*Execution, error)
	ListExecutionsForWorkflow(workflowID string) []*Execution
}

// Store holds Definitions and their Executions. It is safe for
// concurrent use.
type Store struct {
	mu         sync.RWMutex
	definitions map[string]Definition
	executions  map[string]*Execution
}

// NewStore returns an empty in-memory Store, suitable for a
// single-instance deployment or tests. A durable deployment uses the
// Postgres-backed Repository in pkg/datastorage/repository/workflow
// instead.
func NewStore() *Store {
	return &Store{
		definitions: make(map[string]Definition),
		executions:  make(map[string]*Execution),
	}
}

var _ Repository = (*Store)(nil)

func (s *Store) SaveDefinition(ctx context.Context, def Definition) error {
	if err := Validate(def); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[def.ID] = def
	return nil
}

func (s *Store) GetDefinition(id string) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.definitions[id]
	if !ok {
		return Definition{}, apperrors.NewNotFoundError("workflow definition " + id)
	}
	return def, nil
}

func (s *Store) ListDefinitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

func (s *Store) SaveExecution(ctx context.Context, exec *Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ExecutionID] = exec
	return nil
}

func (s *Store) GetExecution(id string) (*Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.executions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("workflow execution " + id)
	}
	return exec, nil
}

func (s *Store) ListExecutionsForWorkflow(workflowID string) []*Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var execs []*Execution
	for _, exec := range s.executions {
		if exec.WorkflowID == workflowID {
			execs = append(execs, exec)
		}
	}
	sort.Slice(execs, func(i, j int) bool { return execs[i].StartedAt.Before(execs[j].StartedAt) })
	return execs
}
