package vector

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig tunes a backoff loop around a catalog backend call.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryConfig suits a general-purpose catalog operation.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// DatabaseRetryConfig is tuned for a persistent backend, which needs
// more attempts and a gentler backoff curve than an in-process call.
func DatabaseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      250 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 1.5,
		Jitter:            true,
	}
}

// IsRetryableError reports whether err looks transient: a dropped
// connection, a deadline, or a driver-reported timeout/connection
// refusal, as opposed to a data or query error that will fail again.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "timeout", "timed out", "broken pipe", "no such host", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// WithRetry runs op, retrying transient failures with exponential
// backoff (optionally jittered) up to cfg.MaxAttempts times.
func WithRetry(ctx context.Context, cfg RetryConfig, logger *logrus.Logger, op func() error) error {
	if logger == nil {
		logger = logrus.New()
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryableError(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		wait := delay
		if cfg.Jitter {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		logger.WithError(lastErr).WithField("attempt", attempt).Debug("retrying catalog backend call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(math.Min(float64(delay)*cfg.BackoffMultiplier, float64(cfg.MaxDelay)))
	}
	return lastErr
}
