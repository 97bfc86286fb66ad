// Package workflow implements workflow.Repository against Postgres,
// the durable alternative to pkg/workflow's in-memory Store for
// deployments that want executions and checkpoints queryable outside
// the filesystem.
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
	"github.com/ckoons/tekton-core/pkg/datastorage/metrics"
	"github.com/ckoons/tekton-core/pkg/datastorage/repository/sqlutil"
	"github.com/ckoons/tekton-core/pkg/workflow"
)

// Store is a Postgres-backed implementation of workflow.Repository.
// Definitions and Executions are stored as JSONB documents; a handful
// of columns are extracted for indexed filtering (see discovery_filter.go).
type Store struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// Open connects to dsn (a standard Postgres connection string) using the
// pgx stdlib driver and returns a ready Store. Callers should run
// Migrate before first use in a fresh database.
func Open(ctx context.Context, dsn string, m *metrics.Metrics) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, apperrors.NewPersistenceError("connect to datastorage postgres backend", err)
	}
	return &Store{db: db, metrics: m}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ workflow.Repository = (*Store)(nil)

func (s *Store) observeWrite(table string, start time.Time) {
	if s.metrics != nil {
		s.metrics.WriteDuration.WithLabelValues(metrics.SanitizeTableName(table)).Observe(time.Since(start).Seconds())
	}
}

func (s *Store) SaveDefinition(ctx context.Context, def workflow.Definition) error {
	if err := workflow.Validate(def); err != nil {
		return err
	}
	start := time.Now()
	defer s.observeWrite("workflow_definitions", start)

	tasks, err := json.Marshal(def.Tasks)
	if err != nil {
		return apperrors.NewPersistenceError("marshal workflow definition tasks", err)
	}
	params, err := json.Marshal(def.ParametersSchema)
	if err != nil {
		return apperrors.NewPersistenceError("marshal workflow definition parameters schema", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_definitions (id, name, version, parameters_schema, tasks, max_concurrent_tasks, checkpoint_interval_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			parameters_schema = EXCLUDED.parameters_schema,
			tasks = EXCLUDED.tasks,
			max_concurrent_tasks = EXCLUDED.max_concurrent_tasks,
			checkpoint_interval_ms = EXCLUDED.checkpoint_interval_ms
	`, def.ID, def.Name, def.Version, params, tasks, def.MaxConcurrentTasks, def.CheckpointInterval.Milliseconds())
	if err != nil {
		return apperrors.NewPersistenceError("save workflow definition", err)
	}
	return nil
}

func (s *Store) GetDefinition(id string) (workflow.Definition, error) {
	var row struct {
		ID                   string `db:"id"`
		Name                 string `db:"name"`
		Version              string `db:"version"`
		ParametersSchema     []byte `db:"parameters_schema"`
		Tasks                []byte `db:"tasks"`
		MaxConcurrentTasks   int    `db:"max_concurrent_tasks"`
		CheckpointIntervalMS int64  `db:"checkpoint_interval_ms"`
	}
	err := s.db.Get(&row, `SELECT id, name, version, parameters_schema, tasks, max_concurrent_tasks, checkpoint_interval_ms FROM workflow_definitions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return workflow.Definition{}, apperrors.NewNotFoundError("workflow definition " + id)
	}
	if err != nil {
		return workflow.Definition{}, apperrors.NewPersistenceError("get workflow definition", err)
	}

	def := workflow.Definition{
		ID:                 row.ID,
		Name:                row.Name,
		Version:             row.Version,
		MaxConcurrentTasks:  row.MaxConcurrentTasks,
		CheckpointInterval:  time.Duration(row.CheckpointIntervalMS) * time.Millisecond,
	}
	if len(row.ParametersSchema) > 0 {
		if err := json.Unmarshal(row.ParametersSchema, &def.ParametersSchema); err != nil {
			return workflow.Definition{}, apperrors.NewPersistenceError("unmarshal parameters schema", err)
		}
	}
	if err := json.Unmarshal(row.Tasks, &def.Tasks); err != nil {
		return workflow.Definition{}, apperrors.NewPersistenceError("unmarshal workflow tasks", err)
	}
	return def, nil
}

func (s *Store) ListDefinitions() []workflow.Definition {
	var ids []string
	if err := s.db.Select(&ids, `SELECT id FROM workflow_definitions ORDER BY id`); err != nil {
		return nil
	}
	defs := make([]workflow.Definition, 0, len(ids))
	for _, id := range ids {
		if def, err := s.GetDefinition(id); err == nil {
			defs = append(defs, def)
		}
	}
	return defs
}

func (s *Store) SaveExecution(ctx context.Context, exec *workflow.Execution) error {
	start := time.Now()
	defer s.observeWrite("workflow_executions", start)

	inputs, err := json.Marshal(exec.Inputs)
	if err != nil {
		return apperrors.NewPersistenceError("marshal execution inputs", err)
	}
	taskStates, err := json.Marshal(exec.TaskStates)
	if err != nil {
		return apperrors.NewPersistenceError("marshal execution task states", err)
	}
	checkpoints, err := json.Marshal(exec.Checkpoints)
	if err != nil {
		return apperrors.NewPersistenceError("marshal execution checkpoints", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (execution_id, workflow_id, inputs, status, started_at, finished_at, task_states, checkpoints)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (execution_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			task_states = EXCLUDED.task_states,
			checkpoints = EXCLUDED.checkpoints
	`, exec.ExecutionID, exec.WorkflowID, inputs, string(exec.Status), exec.StartedAt,
		sqlutil.ToNullTime(exec.FinishedAt), taskStates, checkpoints)
	if err != nil {
		return apperrors.NewPersistenceError("save workflow execution", err)
	}
	return nil
}

func (s *Store) GetExecution(id string) (*workflow.Execution, error) {
	var row executionRow
	err := s.db.Get(&row, `SELECT execution_id, workflow_id, inputs, status, started_at, finished_at, task_states, checkpoints FROM workflow_executions WHERE execution_id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("workflow execution " + id)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get workflow execution", err)
	}
	return row.toExecution()
}

func (s *Store) ListExecutionsForWorkflow(workflowID string) []*workflow.Execution {
	execs, err := s.ListExecutionsFiltered(Filters{WorkflowID: workflowID})
	if err != nil {
		return nil
	}
	return execs
}

type executionRow struct {
	ExecutionID string         `db:"execution_id"`
	WorkflowID  string         `db:"workflow_id"`
	Inputs      []byte         `db:"inputs"`
	Status      string         `db:"status"`
	StartedAt   time.Time      `db:"started_at"`
	FinishedAt  sql.NullTime   `db:"finished_at"`
	TaskStates  []byte         `db:"task_states"`
	Checkpoints []byte         `db:"checkpoints"`
}

func (r executionRow) toExecution() (*workflow.Execution, error) {
	exec := &workflow.Execution{
		ExecutionID: r.ExecutionID,
		WorkflowID:  r.WorkflowID,
		Status:      workflow.ExecutionStatus(r.Status),
		StartedAt:   r.StartedAt,
		FinishedAt:  sqlutil.FromNullTime(r.FinishedAt),
	}
	if err := json.Unmarshal(r.Inputs, &exec.Inputs); err != nil {
		return nil, apperrors.NewPersistenceError("unmarshal execution inputs", err)
	}
	if err := json.Unmarshal(r.TaskStates, &exec.TaskStates); err != nil {
		return nil, apperrors.NewPersistenceError("unmarshal execution task states", err)
	}
	if err := json.Unmarshal(r.Checkpoints, &exec.Checkpoints); err != nil {
		return nil, apperrors.NewPersistenceError("unmarshal execution checkpoints", err)
	}
	return exec, nil
}
