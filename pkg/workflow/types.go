// Package workflow implements the DAG-based Workflow Orchestrator: task
// graph validation, ready-set scheduling over a bounded worker pool,
// parameter substitution, retries, checkpointing, and pause/resume/cancel.
package workflow

import "time"

// TaskStatus is a TaskState's lifecycle position. Terminal states never
// regress.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskReady     TaskStatus = "ready"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
	TaskCancelled TaskStatus = "cancelled"
)

// ExecutionStatus is a Workflow Execution's overall lifecycle position.
type ExecutionStatus string

const (
	ExecutionRunning     ExecutionStatus = "running"
	ExecutionPaused      ExecutionStatus = "paused"
	ExecutionSucceeded   ExecutionStatus = "succeeded"
	ExecutionFailed      ExecutionStatus = "failed"
	ExecutionFailedEngine ExecutionStatus = "failed_engine"
	ExecutionCancelled   ExecutionStatus = "cancelled"
)

// OnError names how a task's failure (after retries are exhausted) is
// handled.
type OnError string

const (
	OnErrorFail       OnError = "fail"
	OnErrorSkip       OnError = "skip"
	onErrorCompensate OnError = "compensate:" // prefix; suffix is the compensating task id
)

// RetryPolicy controls a task's retry behavior on transport or explicit
// retryable failures.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
}

// DefaultRetryPolicy matches §4.3: 3 attempts, 500ms base, 30s cap,
// exponential backoff with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second}
}

// TaskDef is one node in a Workflow Definition's task graph.
type TaskDef struct {
	ID         string                 `json:"id" validate:"required"`
	Name       string                 `json:"name"`
	Component  string                 `json:"component" validate:"required"`
	Action     string                 `json:"action" validate:"required"`
	Input      map[string]interface{} `json:"input"`
	DependsOn  []string               `json:"depends_on"`
	RetryPolicy *RetryPolicy          `json:"retry_policy,omitempty"`
	TimeoutMS  int                    `json:"timeout_ms,omitempty" validate:"gte=0"`
	OnError    OnError                `json:"on_error" validate:"required"`
	Priority   int                    `json:"priority,omitempty"`
	Durable    bool                   `json:"durable,omitempty"`
	CancelOnPause bool                `json:"cancel_on_pause,omitempty"`
}

// Definition is a complete workflow: its typed parameter schema and task
// graph.
type Definition struct {
	ID               string             `json:"id" validate:"required"`
	Name             string             `json:"name" validate:"required"`
	Version          string             `json:"version" validate:"required"`
	ParametersSchema map[string]string  `json:"parameters_schema,omitempty"`
	Tasks            map[string]TaskDef `json:"tasks" validate:"dive"`
	MaxConcurrentTasks int              `json:"max_concurrent_tasks,omitempty" validate:"gte=0"`
	CheckpointInterval time.Duration    `json:"checkpoint_interval,omitempty"`
}

// TaskState is one task's live execution state within an Execution.
type TaskState struct {
	Status     TaskStatus             `json:"status"`
	Attempts   int                    `json:"attempts"`
	Output     map[string]interface{} `json:"output,omitempty"`
	Error      string                 `json:"error,omitempty"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// CheckpointRef points at a persisted checkpoint for an execution.
type CheckpointRef struct {
	CheckpointID string    `json:"checkpoint_id"`
	TakenAt      time.Time `json:"taken_at"`
	StorageRef   string    `json:"storage_ref"`
}

// Checkpoint is a full snapshot of an execution's progress, enough to
// restore and resume dispatch.
type Checkpoint struct {
	CheckpointID       string                 `json:"checkpoint_id"`
	ExecutionID        string                 `json:"execution_id"`
	TakenAt            time.Time              `json:"taken_at"`
	TaskStatesSnapshot map[string]TaskState   `json:"task_states_snapshot"`
	VariablesSnapshot  map[string]interface{} `json:"variables_snapshot"`
}

// Execution is one run of a Definition.
type Execution struct {
	ExecutionID string                 `json:"execution_id"`
	WorkflowID  string                 `json:"workflow_id"`
	Inputs      map[string]interface{} `json:"inputs"`
	Status      ExecutionStatus        `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
	TaskStates  map[string]TaskState   `json:"task_states"`
	Checkpoints []CheckpointRef        `json:"checkpoints"`
}
