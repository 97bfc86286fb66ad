package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
)

// Retryable reports whether err is worth retrying: transport-layer
// failures (unavailable, timeout, overloaded) or a task explicitly
// marked task_failed with a retryable cause. Validation, conflict, and
// engine faults never retry.
func Retryable(err error) bool {
	switch apperrors.GetType(err) {
	case apperrors.ErrorTypeUnavailable, apperrors.ErrorTypeTimeout, apperrors.ErrorTypeOverloaded:
		return true
	case apperrors.ErrorTypeTaskFailed:
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Cause != nil {
			return Retryable(appErr.Cause)
		}
		return false
	default:
		return false
	}
}

// WithRetry runs op under policy, retrying only Retryable failures with
// exponential backoff and jitter bounded by [BaseDelay, MaxDelay]. It
// reports the number of attempts made alongside op's final result.
func WithRetry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (map[string]interface{}, error)) (map[string]interface{}, int, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.BaseDelay
	bo.MaxInterval = policy.MaxDelay
	bo.Multiplier = 2.0

	attempts := 0
	operation := func() (map[string]interface{}, error) {
		attempts++
		output, err := op(ctx)
		if err == nil {
			return output, nil
		}
		if !Retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, attempts, permanent.Unwrap()
		}
		return nil, attempts, err
	}
	return result, attempts, nil
}

// jitteredDelay is exposed for tests asserting the backoff curve stays
// within [base, cap] without depending on backoff/v5 internals directly.
func jitteredDelay(attempt int, base, cap time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > cap {
			return cap
		}
	}
	if d > cap {
		d = cap
	}
	return d
}
