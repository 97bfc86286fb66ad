package dependency

import (
	"context"
	"sync"
)

// FallbackMetrics tracks how heavily a FallbackProvider has been leaned on,
// surfaced through the manager's health report for operators to judge
// whether a degraded mode has become the normal mode.
type FallbackMetrics struct {
	TotalOperations      int64
	SuccessfulOperations int64
	FailedOperations     int64
	FallbacksProvided    int64
}

// FallbackProvider stands in for a primary dependency once its circuit
// breaker has opened. Implementations accept the same logical operations
// as the dependency they replace, at reduced capability.
type FallbackProvider interface {
	ProvideFallback(ctx context.Context, operation string, params map[string]interface{}) (interface{}, error)
	GetMetrics() FallbackMetrics
}

// metricsTracker is embedded by fallback providers to record outcomes
// under a single lock without repeating the bookkeeping in each provider.
type metricsTracker struct {
	mu      sync.Mutex
	metrics FallbackMetrics
}

func (t *metricsTracker) recordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.TotalOperations++
	t.metrics.SuccessfulOperations++
	t.metrics.FallbacksProvided++
}

func (t *metricsTracker) recordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.TotalOperations++
	t.metrics.FailedOperations++
	t.metrics.FallbacksProvided++
}

func (t *metricsTracker) snapshot() FallbackMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}
