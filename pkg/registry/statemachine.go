package registry

import "fmt"

// validTransitions enumerates the allowed State -> State edges of the
// component lifecycle: unregistered -> registering -> initializing ->
// ready <-> degraded -> failed -> unregistered.
var validTransitions = map[State][]State{
	StateUnregistered: {StateRegistering},
	StateRegistering:  {StateInitializing, StateFailed},
	StateInitializing: {StateReady, StateFailed},
	StateReady:        {StateDegraded, StateFailed, StateUnregistered},
	StateDegraded:     {StateReady, StateFailed, StateUnregistered},
	StateFailed:       {StateUnregistered, StateRegistering},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal edge.
func CanTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a state change, returning an error that
// names both the illegal edge and the valid ones for the caller's state.
func Transition(current State, to State) (State, error) {
	if !CanTransition(current, to) {
		return current, fmt.Errorf("illegal state transition from %s to %s (valid: %v)",
			current, to, validTransitions[current])
	}
	return to, nil
}
