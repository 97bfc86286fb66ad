// Package dependency implements the fallback-chain and circuit-breaker
// machinery behind execute_with_fallback: when a capability's primary
// provider is failing, callers fail fast instead of piling up retries
// against a dead dependency, and degrade to a registered fallback.
package dependency

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitState mirrors gobreaker's three states under Tekton's own names so
// callers don't need to import gobreaker directly.
type CircuitState int

const (
	CircuitStateClosed CircuitState = iota
	CircuitStateHalfOpen
	CircuitStateOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitStateClosed:
		return "closed"
	case CircuitStateHalfOpen:
		return "half-open"
	case CircuitStateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// minRequestsForTrip is the smallest sample size the breaker will trip on.
// Below it a single failure would otherwise read as a 100% failure rate.
const minRequestsForTrip = 5

// CircuitBreaker wraps a gobreaker.CircuitBreaker with a failure-rate trip
// condition: it opens once at least minRequestsForTrip calls have been made
// and the failure rate over that window reaches failureThreshold.
type CircuitBreaker struct {
	name              string
	failureThreshold  float64
	resetTimeout      time.Duration
	breaker           *gobreaker.CircuitBreaker[any]
}

// NewCircuitBreaker builds a CircuitBreaker named name that trips once its
// failure rate reaches failureThreshold (0.0-1.0) and stays open for
// resetTimeout before probing the dependency again.
func NewCircuitBreaker(name string, failureThreshold float64, resetTimeout time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}

	cb.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequestsForTrip {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureThreshold
		},
	})
	return cb
}

// Call executes fn through the breaker. If the breaker is open, fn is never
// invoked and Call fails fast with an "circuit breaker is open" error.
func (cb *CircuitBreaker) Call(fn func() error) error {
	_, err := cb.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("circuit breaker is open for %q: %w", cb.name, err)
	}
	return err
}

// GetState returns the breaker's current state.
func (cb *CircuitBreaker) GetState() CircuitState {
	switch cb.breaker.State() {
	case gobreaker.StateClosed:
		return CircuitStateClosed
	case gobreaker.StateHalfOpen:
		return CircuitStateHalfOpen
	default:
		return CircuitStateOpen
	}
}

// GetName returns the breaker's configured name.
func (cb *CircuitBreaker) GetName() string { return cb.name }

// GetFailureThreshold returns the configured trip threshold.
func (cb *CircuitBreaker) GetFailureThreshold() float64 { return cb.failureThreshold }

// GetResetTimeout returns the configured open-state duration.
func (cb *CircuitBreaker) GetResetTimeout() time.Duration { return cb.resetTimeout }

// GetFailures returns the failure count in the current counting window.
func (cb *CircuitBreaker) GetFailures() int64 {
	return int64(cb.breaker.Counts().TotalFailures)
}

// GetFailureRate returns the failure rate in the current counting window,
// or 0 if no calls have been made yet.
func (cb *CircuitBreaker) GetFailureRate() float64 {
	counts := cb.breaker.Counts()
	if counts.Requests == 0 {
		return 0.0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}
