// Package webhook supplies a generic inbound-webhook HTTP handler:
// content-type negotiation and raw payload capture, decoupled from any
// one envelope shape. Callers specialize it for their own wire format
// (see pkg/workflow/push.go for the /workflow envelope).
package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/errors"
)

// maxBodyBytes bounds how much of an inbound webhook body is read
// before the handler gives up, protecting against an unbounded or
// malicious sender.
const maxBodyBytes = 1 << 20 // 1 MiB

// Handler decodes an inbound webhook body into a caller-defined payload
// type and hands it to Process. Decode and Process are both required;
// Logger is optional.
type Handler struct {
	Decode  func(body []byte) (interface{}, error)
	Process func(ctx context.Context, payload interface{}) error
	Logger  *logrus.Logger
}

// ServeHTTP implements http.Handler. It rejects anything but a JSON
// body, decodes it with Decode, and hands the result to Process. A
// Process error is surfaced via the shared AppError status mapping; a
// nil error responds 202 Accepted.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !isJSONContentType(ct) {
		writeError(w, errors.NewValidationError("unsupported Content-Type: "+ct))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, errors.NewValidationError("could not read webhook body"))
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, errors.NewValidationError("webhook body exceeds the size limit"))
		return
	}

	payload, err := h.Decode(body)
	if err != nil {
		writeError(w, errors.NewValidationError("malformed webhook payload: "+err.Error()))
		return
	}

	if err := h.Process(r.Context(), payload); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("webhook processing failed")
		}
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func isJSONContentType(contentType string) bool {
	for i := 0; i < len(contentType); i++ {
		if contentType[i] == ';' {
			contentType = contentType[:i]
			break
		}
	}
	return contentType == "application/json"
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.GetStatusCode(err))
	_, _ = w.Write([]byte(`{"error":"` + errors.SafeErrorMessage(err) + `"}`))
}
