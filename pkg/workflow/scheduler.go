package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ckoons/tekton-core/pkg/shared/logging"
)

const defaultCheckpointInterval = 5 * time.Minute

// controlPollInterval bounds how long a pause/cancel request can go
// unnoticed while every in-flight task is still running.
const controlPollInterval = 25 * time.Millisecond

// DefaultMaxConcurrentTasks is the worker pool size used when a
// Definition leaves max_concurrent_tasks unset.
const DefaultMaxConcurrentTasks = 4

// Controller holds the pause/cancel signals an in-flight Run observes.
// The same Controller instance must be shared with whatever API handler
// accepts pause/resume/cancel requests for the execution.
type Controller struct {
	paused    atomic.Bool
	cancelled atomic.Bool
}

func (c *Controller) Pause()  { c.paused.Store(true) }
func (c *Controller) Resume() { c.paused.Store(false) }
func (c *Controller) Cancel() { c.cancelled.Store(true) }

func (c *Controller) Paused() bool    { return c.paused.Load() }
func (c *Controller) Cancelled() bool { return c.cancelled.Load() }

// Checkpointer persists a Checkpoint and returns where it landed.
type Checkpointer interface {
	Save(ctx context.Context, cp Checkpoint) (CheckpointRef, error)
}

// Engine drives one Execution's tasks to completion over a bounded
// worker pool, honoring retries, on_error policy, and checkpoint
// triggers.
type Engine struct {
	Dispatcher   *Dispatcher
	Checkpointer Checkpointer
	Logger       *logrus.Logger
}

// NewEngine builds an Engine. checkpointer may be nil to disable
// checkpointing (e.g. in tests).
func NewEngine(dispatcher *Dispatcher, checkpointer Checkpointer, logger *logrus.Logger) *Engine {
	return &Engine{Dispatcher: dispatcher, Checkpointer: checkpointer, Logger: logger}
}

// Run executes def's task graph against exec until every task reaches a
// terminal state, the execution is cancelled, or it is paused. Run
// returns nil on pause — the caller persists exec and re-invokes Run
// later to resume. exec.TaskStates must be initialized (pending for
// every task) by the caller before the first Run.
func (e *Engine) Run(ctx context.Context, def Definition, exec *Execution, ctl *Controller) error {
	maxConcurrent := def.MaxConcurrentTasks
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTasks
	}
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	group, gctx := errgroup.WithContext(ctx)

	var (
		mu          sync.Mutex
		inFlight    = map[string]context.CancelFunc{}
		draining    atomic.Bool
		forceReady  = map[string]struct{}{}
		done        = make(chan struct{}, 1)
	)
	notify := func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}

	interval := def.CheckpointInterval
	if interval <= 0 {
		interval = defaultCheckpointInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			e.checkpointNow(gctx, exec)
		}
	}()

	for {
		if ctl.Cancelled() {
			mu.Lock()
			for _, cancel := range inFlight {
				cancel()
			}
			mu.Unlock()
			group.Wait()
			e.cancelRemaining(def, exec, &mu)
			exec.Status = ExecutionCancelled
			return nil
		}

		mu.Lock()
		ready := ReadySet(def, exec.TaskStates)
		ready = append(ready, drainForcedReadyLocked(exec, ready, forceReady)...)
		if draining.Load() || ctl.Paused() {
			ready = nil
		}
		dispatchedAny := false
		for _, id := range ready {
			if !sem.TryAcquire(1) {
				break
			}
			task := def.Tasks[id]
			taskCtx, cancel := context.WithCancel(gctx)
			inFlight[id] = cancel
			now := time.Now()
			exec.TaskStates[id] = TaskState{Status: TaskRunning, StartedAt: &now, Attempts: exec.TaskStates[id].Attempts}
			dispatchedAny = true

			group.Go(func() error {
				defer sem.Release(1)
				e.runTask(taskCtx, def, exec, task, &mu, &draining, forceReady)
				mu.Lock()
				delete(inFlight, id)
				mu.Unlock()
				notify()
				return nil
			})
		}
		running := len(inFlight)
		mu.Unlock()

		if ctl.Paused() && running == 0 {
			exec.Status = ExecutionPaused
			return nil
		}

		if !dispatchedAny && running == 0 {
			break
		}
		if !dispatchedAny {
			select {
			case <-done:
			case <-gctx.Done():
			case <-time.After(controlPollInterval):
				// re-check Cancelled/Paused even if no task has finished yet.
			}
		}
	}

	group.Wait()
	e.finalize(def, exec)
	return nil
}

func (e *Engine) runTask(ctx context.Context, def Definition, exec *Execution, task TaskDef, mu *sync.Mutex, draining *atomic.Bool, forceReady map[string]struct{}) {
	policy := DefaultRetryPolicy()
	if task.RetryPolicy != nil {
		policy = *task.RetryPolicy
	}

	mu.Lock()
	vars := Variables{Parameters: exec.Inputs, Tasks: cloneTaskStates(exec.TaskStates)}
	mu.Unlock()

	output, attempts, err := WithRetry(ctx, policy, func(ctx context.Context) (map[string]interface{}, error) {
		return e.Dispatcher.Dispatch(ctx, exec.ExecutionID, task, vars)
	})

	now := time.Now()
	mu.Lock()
	defer mu.Unlock()

	state := exec.TaskStates[task.ID]
	state.Attempts = attempts
	state.FinishedAt = &now

	if err != nil {
		state.Status = TaskFailed
		state.Error = err.Error()
		exec.TaskStates[task.ID] = state
		if e.Logger != nil {
			e.Logger.WithFields(logging.NewFields().Resource("task", task.ID).Error(err).Component(task.Component)).
				Warn("task failed")
		}
		switch {
		case task.OnError == OnErrorSkip:
			// dependents proceed; dependenciesSatisfied absorbs this failure.
		case isCompensate(task.OnError):
			forceReady[compensateTarget(task.OnError)] = struct{}{}
		default:
			draining.Store(true)
		}
		return
	}

	state.Status = TaskSucceeded
	state.Output = output
	exec.TaskStates[task.ID] = state

	if task.Durable && e.Checkpointer != nil {
		go e.checkpointNow(context.Background(), exec)
	}
}

// drainForcedReadyLocked consumes forceReady — the compensating-task ids
// queued by a failed task's on_error: compensate:<id> clause — and returns
// those still pending and not already in alreadyReady, bypassing their
// normal depends_on gate. Caller must hold the Run loop's mutex.
func drainForcedReadyLocked(exec *Execution, alreadyReady []string, forceReady map[string]struct{}) []string {
	if len(forceReady) == 0 {
		return nil
	}
	skip := make(map[string]struct{}, len(alreadyReady))
	for _, id := range alreadyReady {
		skip[id] = struct{}{}
	}

	var forced []string
	for id := range forceReady {
		delete(forceReady, id)
		if _, already := skip[id]; already {
			continue
		}
		if state, ok := exec.TaskStates[id]; ok && state.Status != TaskPending {
			continue
		}
		forced = append(forced, id)
	}
	return forced
}

func (e *Engine) cancelRemaining(def Definition, exec *Execution, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for id, state := range exec.TaskStates {
		if state.Status == TaskPending || state.Status == TaskReady {
			state.Status = TaskCancelled
			exec.TaskStates[id] = state
		}
	}
	_ = def
}

// finalize sets exec.Status once every task has reached a terminal
// state: succeeded if none failed, failed if any did (and weren't
// absorbed by an on_error skip).
func (e *Engine) finalize(def Definition, exec *Execution) {
	anyFailed := false
	anyBlocked := len(Blocked(def, exec.TaskStates)) > 0
	for id, state := range exec.TaskStates {
		task := def.Tasks[id]
		if state.Status == TaskFailed && task.OnError != OnErrorSkip {
			anyFailed = true
		}
		if state.Status == TaskPending && anyBlocked {
			state.Status = TaskCancelled
			exec.TaskStates[id] = state
		}
	}
	now := time.Now()
	exec.FinishedAt = &now
	if anyFailed {
		exec.Status = ExecutionFailed
	} else {
		exec.Status = ExecutionSucceeded
	}
}

func (e *Engine) checkpointNow(ctx context.Context, exec *Execution) {
	if e.Checkpointer == nil {
		return
	}
	cp := Checkpoint{
		ExecutionID:        exec.ExecutionID,
		TakenAt:            time.Now(),
		TaskStatesSnapshot: cloneTaskStates(exec.TaskStates),
		VariablesSnapshot:  exec.Inputs,
	}
	ref, err := e.Checkpointer.Save(ctx, cp)
	if err != nil {
		if e.Logger != nil {
			e.Logger.WithError(err).Warn("checkpoint save failed")
		}
		return
	}
	exec.Checkpoints = append(exec.Checkpoints, ref)
}

func cloneTaskStates(states map[string]TaskState) map[string]TaskState {
	clone := make(map[string]TaskState, len(states))
	for k, v := range states {
		clone[k] = v
	}
	return clone
}
