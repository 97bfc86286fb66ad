package workflow

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
	"github.com/ckoons/tekton-core/pkg/workflow"
)

// Filters narrows ListExecutionsFiltered's result set. All fields are
// optional; the zero value matches every execution.
type Filters struct {
	WorkflowID string
	Status     workflow.ExecutionStatus
	Since      time.Time
	Limit      int
}

// buildExecutionFilterSQL compiles Filters into a parameterized WHERE
// clause (without the "WHERE" keyword) and its positional args, so
// callers can append it after a base SELECT.
func buildExecutionFilterSQL(f Filters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if f.WorkflowID != "" {
		args = append(args, f.WorkflowID)
		conditions = append(conditions, fmt.Sprintf("workflow_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		conditions = append(conditions, fmt.Sprintf("started_at >= $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// ListExecutionsFiltered queries executions matching f, ordered by
// started_at ascending (oldest first), capped at f.Limit (default 100).
func (s *Store) ListExecutionsFiltered(f Filters) ([]*workflow.Execution, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	where, args := buildExecutionFilterSQL(f)
	query := `SELECT execution_id, workflow_id, inputs, status, started_at, finished_at, task_states, checkpoints FROM workflow_executions`
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY started_at ASC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var rows []executionRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, apperrors.NewPersistenceError("list filtered workflow executions", err)
	}

	execs := make([]*workflow.Execution, 0, len(rows))
	for _, row := range rows {
		exec, err := row.toExecution()
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, nil
}
