package vector_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/storage/vector"
)

var _ = Describe("Retry", func() {
	var (
		logger *logrus.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		ctx = context.Background()
	})

	Describe("DefaultRetryConfig", func() {
		It("should provide sensible defaults", func() {
			cfg := vector.DefaultRetryConfig()

			Expect(cfg.MaxAttempts).To(Equal(3))
			Expect(cfg.InitialDelay).To(Equal(100 * time.Millisecond))
			Expect(cfg.MaxDelay).To(Equal(5 * time.Second))
			Expect(cfg.BackoffMultiplier).To(Equal(2.0))
			Expect(cfg.Jitter).To(BeTrue())
		})
	})

	Describe("DatabaseRetryConfig", func() {
		It("should provide database-tuned defaults", func() {
			cfg := vector.DatabaseRetryConfig()

			Expect(cfg.MaxAttempts).To(Equal(5))
			Expect(cfg.InitialDelay).To(Equal(250 * time.Millisecond))
			Expect(cfg.MaxDelay).To(Equal(10 * time.Second))
			Expect(cfg.BackoffMultiplier).To(Equal(1.5))
			Expect(cfg.Jitter).To(BeTrue())
		})
	})

	Describe("IsRetryableError", func() {
		It("should identify standard transient errors as retryable", func() {
			retryable := []error{
				sql.ErrConnDone,
				context.DeadlineExceeded,
				errors.New("dial tcp: connection refused"),
				errors.New("read: connection reset by peer"),
			}
			for _, err := range retryable {
				Expect(vector.IsRetryableError(err)).To(BeTrue(), err.Error())
			}
		})

		It("should not flag a nil error as retryable", func() {
			Expect(vector.IsRetryableError(nil)).To(BeFalse())
		})

		It("should not flag a data error as retryable", func() {
			Expect(vector.IsRetryableError(errors.New("pattern ID cannot be empty"))).To(BeFalse())
		})
	})

	Describe("WithRetry", func() {
		It("should return immediately on success", func() {
			calls := 0
			err := vector.WithRetry(ctx, vector.DefaultRetryConfig(), logger, func() error {
				calls++
				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal(1))
		})

		It("should retry a transient failure until it succeeds", func() {
			cfg := vector.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2.0}
			calls := 0
			err := vector.WithRetry(ctx, cfg, logger, func() error {
				calls++
				if calls < 3 {
					return fmt.Errorf("connection reset")
				}
				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(calls).To(Equal(3))
		})

		It("should stop immediately on a non-retryable error", func() {
			calls := 0
			err := vector.WithRetry(ctx, vector.DefaultRetryConfig(), logger, func() error {
				calls++
				return errors.New("pattern ID cannot be empty")
			})

			Expect(err).To(HaveOccurred())
			Expect(calls).To(Equal(1))
		})

		It("should give up after MaxAttempts", func() {
			cfg := vector.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffMultiplier: 2.0}
			calls := 0
			err := vector.WithRetry(ctx, cfg, logger, func() error {
				calls++
				return errors.New("connection reset")
			})

			Expect(err).To(HaveOccurred())
			Expect(calls).To(Equal(2))
		})
	})
})
