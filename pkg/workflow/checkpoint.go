package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileCheckpointer persists each Checkpoint to its own JSON file under a
// directory keyed by execution id, suitable for a single-instance or
// development deployment.
type FileCheckpointer struct {
	dir string
}

// NewFileCheckpointer targets the given base directory, creating it (and
// per-execution subdirectories) as needed on Save.
func NewFileCheckpointer(dir string) *FileCheckpointer {
	return &FileCheckpointer{dir: dir}
}

func (c *FileCheckpointer) execDir(executionID string) string {
	return filepath.Join(c.dir, executionID)
}

// Save writes cp atomically via a temp-file-plus-rename and returns a
// CheckpointRef pointing at the file.
func (c *FileCheckpointer) Save(ctx context.Context, cp Checkpoint) (CheckpointRef, error) {
	if cp.CheckpointID == "" {
		cp.CheckpointID = uuid.NewString()
	}
	if cp.TakenAt.IsZero() {
		cp.TakenAt = time.Now()
	}

	dir := c.execDir(cp.ExecutionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckpointRef{}, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return CheckpointRef{}, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := filepath.Join(dir, cp.CheckpointID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return CheckpointRef{}, fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return CheckpointRef{}, fmt.Errorf("failed to finalize checkpoint: %w", err)
	}

	return CheckpointRef{CheckpointID: cp.CheckpointID, TakenAt: cp.TakenAt, StorageRef: path}, nil
}

// Load reads a single checkpoint back by its storage ref.
func (c *FileCheckpointer) Load(ctx context.Context, ref CheckpointRef) (Checkpoint, error) {
	data, err := os.ReadFile(ref.StorageRef)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint %s: %w", ref.CheckpointID, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to parse checkpoint %s: %w", ref.CheckpointID, err)
	}
	return cp, nil
}

// Latest returns the execution's most recently taken checkpoint, or
// false if none exist.
func (c *FileCheckpointer) Latest(ctx context.Context, exec Execution) (Checkpoint, bool, error) {
	if len(exec.Checkpoints) == 0 {
		return Checkpoint{}, false, nil
	}
	newest := exec.Checkpoints[0]
	for _, ref := range exec.Checkpoints[1:] {
		if ref.TakenAt.After(newest.TakenAt) {
			newest = ref
		}
	}
	cp, err := c.Load(ctx, newest)
	return cp, true, err
}

// Restore re-applies a Checkpoint's snapshot onto exec, re-marking any
// task caught mid-flight (running at snapshot time) as pending so the
// scheduler re-dispatches it: checkpoint restore is at-least-once, never
// at-most-once, because a running task's actual outcome at crash time is
// unknown.
func Restore(exec *Execution, cp Checkpoint) {
	exec.TaskStates = make(map[string]TaskState, len(cp.TaskStatesSnapshot))
	for id, state := range cp.TaskStatesSnapshot {
		if state.Status == TaskRunning {
			state.Status = TaskPending
			state.StartedAt = nil
		}
		exec.TaskStates[id] = state
	}
	if exec.Inputs == nil {
		exec.Inputs = cp.VariablesSnapshot
	}
}
