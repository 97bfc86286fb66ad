package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// EventStream implements Transport over a server-sent-event GET: Send
// pushes no body of its own (events are outbound-only from the server's
// perspective) but opens the stream and returns the first event as the
// reply; callers that want every event should use Subscribe instead.
type EventStream struct {
	endpoint   string
	httpClient *http.Client
}

// NewEventStream builds an EventStream transport targeting endpoint.
func NewEventStream(endpoint string, httpClient *http.Client) *EventStream {
	return &EventStream{endpoint: endpoint, httpClient: httpClient}
}

// Send opens the event stream and returns its first event as the reply.
func (t *EventStream) Send(ctx context.Context, envelope Envelope) (*Envelope, error) {
	events := make(chan Envelope, 1)
	errs := make(chan error, 1)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go t.Subscribe(streamCtx, events, errs)

	select {
	case event := <-events:
		return &event, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe opens the stream and decodes each "data: ..." line as an
// Envelope, sending it on events until ctx is cancelled or the stream
// ends. Decode failures on individual events are skipped, not fatal.
func (t *EventStream) Subscribe(ctx context.Context, events chan<- Envelope, errs chan<- error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		errs <- fmt.Errorf("failed to build event stream request: %w", err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		errs <- fmt.Errorf("event stream transport failed: %w", err)
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var envelope Envelope
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &envelope); err != nil {
			continue
		}
		events <- envelope
	}
}

// Close is a no-op: the stream's connection is closed by Subscribe's own
// deferred close once its context is cancelled.
func (t *EventStream) Close() error { return nil }
