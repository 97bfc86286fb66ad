package dependency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DependencyConfig controls how the manager protects and degrades
// dependencies on a component's behalf.
type DependencyConfig struct {
	EnableFallbacks        bool
	EnableCircuitBreakers  bool
	DefaultFailureThreshold float64
	DefaultResetTimeout    time.Duration
}

// DefaultDependencyConfig returns sane defaults: breakers on, fallbacks on,
// trip at 50% failures, 30s cool-down before probing again.
func DefaultDependencyConfig() *DependencyConfig {
	return &DependencyConfig{
		EnableFallbacks:         true,
		EnableCircuitBreakers:   true,
		DefaultFailureThreshold: 0.5,
		DefaultResetTimeout:     30 * time.Second,
	}
}

// HealthReport summarizes the manager's protected dependencies for an
// operator or a /health endpoint.
type HealthReport struct {
	BreakersTracked     []string
	BreakersOpen        []string
	FallbacksAvailable  []string
}

// DependencyManager is the execute_with_fallback glue: it holds one
// circuit breaker per named dependency and a registry of fallback
// providers keyed by name. It calls the primary once through its breaker
// and uses the fallback when that call fails or the breaker is open; the
// primary is not retried.
type DependencyManager struct {
	config    *DependencyConfig
	logger    *logrus.Logger
	mu        sync.RWMutex
	breakers  map[string]*CircuitBreaker
	fallbacks map[string]FallbackProvider
}

// NewDependencyManager builds a manager from config, using
// DefaultDependencyConfig() when config is nil.
func NewDependencyManager(config *DependencyConfig, logger *logrus.Logger) *DependencyManager {
	if config == nil {
		config = DefaultDependencyConfig()
	}
	return &DependencyManager{
		config:    config,
		logger:    logger,
		breakers:  make(map[string]*CircuitBreaker),
		fallbacks: make(map[string]FallbackProvider),
	}
}

// RegisterFallback makes provider available under name for
// ExecuteWithFallback to degrade to.
func (m *DependencyManager) RegisterFallback(name string, provider FallbackProvider) error {
	if name == "" {
		return fmt.Errorf("fallback name must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[name] = provider
	return nil
}

// breakerFor returns the named dependency's circuit breaker, creating one
// with the manager's defaults on first use.
func (m *DependencyManager) breakerFor(name string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(name, m.config.DefaultFailureThreshold, m.config.DefaultResetTimeout)
	m.breakers[name] = cb
	return cb
}

// ExecuteWithFallback calls primary through dependencyName's circuit
// breaker. If the breaker is open or primary fails, and fallbacks are
// enabled, it degrades to the named fallback provider's operation/params.
func (m *DependencyManager) ExecuteWithFallback(
	ctx context.Context,
	dependencyName string,
	primary func() (interface{}, error),
	fallbackName, fallbackOperation string,
	fallbackParams map[string]interface{},
) (interface{}, error) {
	var result interface{}
	var primaryErr error

	if m.config.EnableCircuitBreakers {
		cb := m.breakerFor(dependencyName)
		primaryErr = cb.Call(func() error {
			var err error
			result, err = primary()
			return err
		})
	} else {
		result, primaryErr = primary()
	}

	if primaryErr == nil {
		return result, nil
	}

	if !m.config.EnableFallbacks {
		return nil, primaryErr
	}

	m.mu.RLock()
	fallback, ok := m.fallbacks[fallbackName]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dependency %q failed and no fallback %q is registered: %w", dependencyName, fallbackName, primaryErr)
	}

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"dependency": dependencyName,
			"fallback":   fallbackName,
			"error":      primaryErr.Error(),
		}).Warn("degrading to fallback provider")
	}

	return fallback.ProvideFallback(ctx, fallbackOperation, fallbackParams)
}

// GetHealthReport snapshots the manager's breakers and registered
// fallbacks for observability.
func (m *DependencyManager) GetHealthReport() HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := HealthReport{}
	for name, cb := range m.breakers {
		report.BreakersTracked = append(report.BreakersTracked, name)
		if cb.GetState() == CircuitStateOpen {
			report.BreakersOpen = append(report.BreakersOpen, name)
		}
	}
	for name := range m.fallbacks {
		report.FallbacksAvailable = append(report.FallbacksAvailable, name)
	}
	return report
}
