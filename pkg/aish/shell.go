package aish

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/ckoons/tekton-core/internal/errors"
	"github.com/ckoons/tekton-core/pkg/notification/sanitization"
	"github.com/ckoons/tekton-core/pkg/transport"
)

var routingTracer = otel.Tracer("github.com/ckoons/tekton-core/pkg/aish")

// Sender delivers an already-resolved envelope and returns the reply, if
// any. *transport.RequestResponse and the other transport.Transport
// implementations satisfy this directly.
type Sender interface {
	Send(ctx context.Context, envelope transport.Envelope) (*transport.Envelope, error)
}

// TeamChatTimeout is the default per-target timeout for a team-chat
// broadcast fan-out.
const TeamChatTimeout = 2 * time.Second

// Shell implements the aish command surface: resolving a CI name to a
// destination, honoring forwards, and dispatching terminal/team-chat
// subcommands.
type Shell struct {
	registry  *Registry
	sanitizer *sanitization.Sanitizer
	dial      func(endpoint string) (Sender, error)
	logger    *logrus.Logger
}

// NewShell builds a Shell. dial builds a Sender for a resolved endpoint
// (typically wrapping transport.NewRequestResponse with a shared
// http.Client); tests may substitute a stub.
func NewShell(registry *Registry, dial func(endpoint string) (Sender, error), logger *logrus.Logger) *Shell {
	return &Shell{
		registry:  registry,
		sanitizer: sanitization.NewSanitizer(),
		dial:      dial,
		logger:    logger,
	}
}

// TeamChatResult is one recipient's outcome from a Broadcast/TeamChat call.
type TeamChatResult struct {
	CIName  string
	Reply   string
	TimedOut bool
	Err     error
}

// SendMessage implements `aish <ci> "<message>"`: resolve ci, apply any
// forward and JSON envelope wrapping, sanitize, and deliver.
func (s *Shell) SendMessage(ctx context.Context, ciName, message, sender string) (string, error) {
	if message == "" {
		return "", apperrors.New(apperrors.ErrorTypeValidation, "stdin-empty: message body is empty")
	}

	sanitized, err := s.sanitizer.SanitizeWithFallback(message)
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("message sanitization degraded to safe fallback")
	}

	target, err := s.registry.Resolve(ciName)
	if err != nil {
		return "", err
	}

	if target.Terminal != "" {
		return "", s.deliverToTerminal(target, sanitized, sender, false)
	}

	return s.deliverToEndpoint(ctx, target.Endpoint, ciName, sanitized, sender, "")
}

// Prompt implements `aish prompt <ci> "<msg>"`: same resolution as
// SendMessage, but terminal deliveries land in the high-priority prompt
// mailbox instead of new.
func (s *Shell) Prompt(ctx context.Context, ciName, message, sender string) (string, error) {
	sanitized, err := s.sanitizer.SanitizeWithFallback(message)
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("message sanitization degraded to safe fallback")
	}

	target, err := s.registry.Resolve(ciName)
	if err != nil {
		return "", err
	}
	if target.Terminal != "" {
		return "", s.deliverToTerminal(target, sanitized, sender, true)
	}
	return s.deliverToEndpoint(ctx, target.Endpoint, ciName, sanitized, sender, "prompt")
}

func (s *Shell) deliverToTerminal(target ResolvedTarget, body, sender string, highPriority bool) error {
	session, err := s.registry.GetTerminal(target.Terminal)
	if err != nil {
		return err
	}

	if target.JSON {
		wrapped, _ := json.Marshal(EnvelopeBody{Message: body, Dest: target.Terminal, Sender: sender})
		body = string(wrapped)
	}

	kind := MailboxNew
	if highPriority {
		kind = MailboxPrompt
	}
	msg := Message{ID: uuid.NewString(), Timestamp: time.Now(), From: sender, Body: body}
	if evicted := session.Deliver(kind, msg); evicted && s.logger != nil {
		s.logger.WithField("terminal", target.Terminal).Warn("mailbox-full-evicted: oldest message dropped")
	}
	return nil
}

func (s *Shell) deliverToEndpoint(ctx context.Context, endpoint, ciName, body, sender, routing string) (string, error) {
	ctx, span := routingTracer.Start(ctx, "aish.route",
		trace.WithAttributes(attribute.String("tekton.aish.destination", ciName)),
	)
	defer span.End()

	if endpoint == "" {
		err := apperrors.NewNotFoundError("endpoint for ci " + ciName)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unresolved endpoint")
		return "", err
	}

	sendFn, err := s.dial(endpoint)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrorTypeUnavailable, "transport-failure: failed to dial "+ciName)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "dial failed")
		return "", wrapped
	}

	payload, _ := json.Marshal(map[string]string{"text": body})
	envelope := transport.Envelope{From: sender, To: ciName, Purpose: routing, Body: payload}

	reply, err := sendFn.Send(ctx, envelope)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrorTypeUnavailable, "transport-failure: delivery to "+ciName+" failed")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "delivery failed")
		return "", wrapped
	}
	if reply == nil {
		return "", nil
	}
	return string(reply.Body), nil
}

// Broadcast delivers message to every terminal's new mailbox (or prompt,
// for a high-priority broadcast), used by `aish terma broadcast`.
func (s *Shell) Broadcast(message, sender string, highPriority bool) {
	kind := MailboxNew
	if highPriority {
		kind = MailboxPrompt
	}
	msg := Message{ID: uuid.NewString(), Timestamp: time.Now(), From: sender, Body: message}
	for _, session := range s.registry.ListTerminals() {
		if evicted := session.Deliver(kind, msg); evicted && s.logger != nil {
			s.logger.WithField("terminal", session.TerminalID).Warn("mailbox-full-evicted: oldest message dropped")
		}
	}
}

// TeamChat fan-outs message to every registered greek-chorus CI in
// parallel, collecting replies in arrival order with a per-target
// timeout. A tardy responder is marked TimedOut, not treated as failed.
func (s *Shell) TeamChat(ctx context.Context, cis []CIEntry, message, sender string) []TeamChatResult {
	var (
		mu      sync.Mutex
		results []TeamChatResult
		wg      sync.WaitGroup
	)

	for _, ci := range cis {
		if ci.Kind != KindGreekChorus {
			continue
		}
		wg.Add(1)
		go func(entry CIEntry) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, TeamChatTimeout)
			defer cancel()

			reply, err := s.deliverToEndpoint(callCtx, entry.Endpoint, entry.CIName, message, sender, "")
			result := TeamChatResult{CIName: entry.CIName, Reply: reply}
			if err != nil && callCtx.Err() == context.DeadlineExceeded {
				result.TimedOut = true
			} else {
				result.Err = err
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(ci)
	}
	wg.Wait()
	return results
}
