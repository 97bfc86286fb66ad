package workflow

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
)

var taskOutputRef = regexp.MustCompile(`\$\{tasks\.([a-zA-Z0-9_-]+)\.output(?:\.[a-zA-Z0-9_.\-]+)?\}`)

var structValidator = validator.New()

// Validate checks a Definition's required fields (via struct tags) plus
// its task graph for acyclicity, dangling depends_on/output references,
// and a valid on_error clause, returning every problem found rather than
// stopping at the first. Called at every workflow-load ingestion
// boundary: submitting a new Definition and persisting one to either
// Repository implementation.
func Validate(def Definition) error {
	var problems []string

	if err := structValidator.Struct(def); err != nil {
		problems = append(problems, err.Error())
	}

	for id, task := range def.Tasks {
		if id != task.ID && task.ID != "" && task.ID != id {
			problems = append(problems, fmt.Sprintf("task %q: map key does not match task id %q", id, task.ID))
		}
		for _, dep := range task.DependsOn {
			if _, ok := def.Tasks[dep]; !ok {
				problems = append(problems, fmt.Sprintf("task %q: depends_on references unknown task %q", id, dep))
			}
		}
		for ref := range referencedTasks(task) {
			if _, ok := def.Tasks[ref]; !ok {
				problems = append(problems, fmt.Sprintf("task %q: output reference to unknown task %q", id, ref))
			}
		}
		if task.OnError != OnErrorFail && task.OnError != OnErrorSkip && !isCompensate(task.OnError) {
			problems = append(problems, fmt.Sprintf("task %q: invalid on_error %q", id, task.OnError))
		}
		if isCompensate(task.OnError) {
			compID := compensateTarget(task.OnError)
			if _, ok := def.Tasks[compID]; !ok {
				problems = append(problems, fmt.Sprintf("task %q: compensate target %q does not exist", id, compID))
			}
		}
	}

	if cycle := findCycle(def.Tasks); cycle != nil {
		problems = append(problems, fmt.Sprintf("cycle detected: %v", cycle))
	}

	if len(problems) > 0 {
		return fmt.Errorf("workflow %q failed validation: %v", def.ID, problems)
	}
	return nil
}

func isCompensate(oe OnError) bool {
	return len(oe) > len(onErrorCompensate) && oe[:len(onErrorCompensate)] == onErrorCompensate
}

func compensateTarget(oe OnError) string {
	return string(oe[len(onErrorCompensate):])
}

func referencedTasks(task TaskDef) map[string]struct{} {
	refs := map[string]struct{}{}
	for _, v := range task.Input {
		collectRefs(v, refs)
	}
	return refs
}

func collectRefs(v interface{}, refs map[string]struct{}) {
	switch val := v.(type) {
	case string:
		for _, m := range taskOutputRef.FindAllStringSubmatch(val, -1) {
			refs[m[1]] = struct{}{}
		}
	case map[string]interface{}:
		for _, inner := range val {
			collectRefs(inner, refs)
		}
	case []interface{}:
		for _, inner := range val {
			collectRefs(inner, refs)
		}
	}
}

// findCycle returns the ids of one cycle, or nil if the graph is acyclic.
func findCycle(tasks map[string]TaskDef) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, dep := range tasks[id].DependsOn {
			switch color[dep] {
			case gray:
				cycle = append(append([]string{}, path...), dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// ReadySet returns the ids of every pending task whose dependencies have
// all succeeded or been skipped, in deterministic (sorted) order.
func ReadySet(def Definition, states map[string]TaskState) []string {
	var ready []string
	for id, task := range def.Tasks {
		state, ok := states[id]
		if !ok {
			state = TaskState{Status: TaskPending}
		}
		if state.Status != TaskPending {
			continue
		}
		if dependenciesSatisfied(def, task, states) {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		pi, pj := def.Tasks[ready[i]].Priority, def.Tasks[ready[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return ready[i] < ready[j]
	})
	return ready
}

// dependenciesSatisfied reports whether every dependency of task has
// reached a state that lets task proceed: succeeded, skipped outright, or
// failed with an on_error of skip (the failure is absorbed rather than
// propagated).
func dependenciesSatisfied(def Definition, task TaskDef, states map[string]TaskState) bool {
	for _, dep := range task.DependsOn {
		state, ok := states[dep]
		if !ok {
			return false
		}
		switch state.Status {
		case TaskSucceeded, TaskSkipped:
			continue
		case TaskFailed:
			if def.Tasks[dep].OnError == OnErrorSkip {
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}

// Blocked reports whether any pending task can never become ready because
// a dependency has failed or been cancelled without a skip/compensate path.
func Blocked(def Definition, states map[string]TaskState) []string {
	var blocked []string
	for id, task := range def.Tasks {
		state, ok := states[id]
		if ok && state.Status != TaskPending {
			continue
		}
		for _, dep := range task.DependsOn {
			depState, ok := states[dep]
			if !ok {
				continue
			}
			if depState.Status == TaskCancelled {
				blocked = append(blocked, id)
				break
			}
			if depState.Status == TaskFailed && def.Tasks[dep].OnError != OnErrorSkip {
				blocked = append(blocked, id)
				break
			}
		}
	}
	sort.Strings(blocked)
	return blocked
}
