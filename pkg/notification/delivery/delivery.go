// Package delivery fans operator notifications for degraded/failed
// workflow executions out to one or more sinks: a local file mailbox for
// development, a Slack incoming webhook for production. Message bodies
// are sanitized before delivery; sanitization failures degrade to the
// sanitizer's safe fallback text plus a logged warning rather than
// dropping the notification.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/notification/sanitization"
)

// Notification is one operator-facing event: a workflow execution that
// moved into a degraded, failed, or engine-fault state.
type Notification struct {
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// notifiableStatuses gates which execution statuses reach a sink at all.
var notifiableStatuses = map[string]bool{
	"degraded":      true,
	"failed":        true,
	"failed_engine": true,
}

// ShouldNotify reports whether status warrants paging an operator.
func ShouldNotify(status string) bool {
	return notifiableStatuses[status]
}

// Sink delivers one sanitized Notification to an operator channel.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Dispatcher sanitizes a Notification's message body and fans it out to
// every configured Sink, continuing past individual sink failures so one
// broken channel never blocks the others.
type Dispatcher struct {
	sinks     []Sink
	sanitizer *sanitization.Sanitizer
	logger    *logrus.Logger
}

// NewDispatcher builds a Dispatcher over the given sinks.
func NewDispatcher(logger *logrus.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, sanitizer: sanitization.NewSanitizer(), logger: logger}
}

// Dispatch delivers n to every sink if its status is notifiable. It
// returns the first sink error encountered, after attempting delivery to
// every sink regardless.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if !ShouldNotify(n.Status) {
		return nil
	}

	n.Message = d.sanitizeOrDegrade(n.Message)

	var firstErr error
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			if d.logger != nil {
				d.logger.WithError(err).WithField("execution_id", n.ExecutionID).Warn("notification delivery failed")
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *Dispatcher) sanitizeOrDegrade(message string) string {
	sanitized, err := d.sanitizer.SanitizeWithFallback(message)
	if err != nil && d.logger != nil {
		d.logger.WithError(err).Warn("sanitization used its safe fallback")
	}
	return sanitized
}

func formatMessage(n Notification) string {
	return fmt.Sprintf("[%s] workflow %s execution %s: %s", n.Status, n.WorkflowID, n.ExecutionID, n.Message)
}
