package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"

	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
)

// SlackSink posts a Notification to a Slack incoming webhook URL.
type SlackSink struct {
	webhookURL string
	http       *http.Client
}

// NewSlackSink targets the given incoming-webhook URL.
func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		http:       sharedhttp.NewClient(sharedhttp.SlackClientConfig()),
	}
}

var _ Sink = (*SlackSink)(nil)

// Deliver posts n as a Slack message via the configured webhook, using
// the shared notification HTTP client so the request honors the
// project's Slack-tuned timeout rather than slack-go's own default
// client.
func (s *SlackSink) Deliver(ctx context.Context, n Notification) error {
	msg := &slack.WebhookMessage{
		Text: formatMessage(n),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
