package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/integration/webhook"
)

// SprintStatus is a development sprint's position in the inter-component
// push chain: each status but the terminal ones names which component
// picks it up next.
type SprintStatus string

const (
	SprintPlanning    SprintStatus = "Planning"
	SprintReadyReview SprintStatus = "Ready-Review"
	SprintBuilding    SprintStatus = "Building"
	SprintComplete    SprintStatus = "Complete"
	SprintSuperseded  SprintStatus = "Superseded"
)

const readyStagePrefix = "Ready-"

// ReadyStage builds the "Ready-N:<next-component>" status for stage n.
func ReadyStage(n int, next string) SprintStatus {
	return SprintStatus(fmt.Sprintf("%s%d:%s", readyStagePrefix, n, next))
}

// ReadyStageNumber returns a Ready-N status's stage number, or 0 if
// status isn't a Ready-N status.
func ReadyStageNumber(status SprintStatus) int {
	if !strings.HasPrefix(string(status), readyStagePrefix) {
		return 0
	}
	rest := strings.TrimPrefix(string(status), readyStagePrefix)
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(rest[:colon], "%d", &n); err != nil {
		return 0
	}
	return n
}

// ValidTransition reports whether the sprint may move from `from` to
// `to`: Planning -> Ready-1 -> Ready-2 -> Ready-3 -> Ready-Review ->
// Building -> Complete|Superseded. Superseded is reachable from any
// non-terminal status.
func ValidTransition(from, to SprintStatus) bool {
	if to == SprintSuperseded {
		return from != SprintComplete && from != SprintSuperseded
	}
	switch from {
	case SprintPlanning:
		return ReadyStageNumber(to) == 1
	case SprintReadyReview:
		return to == SprintBuilding
	case SprintBuilding:
		return to == SprintComplete
	default:
		if stage := ReadyStageNumber(from); stage > 0 {
			if next := ReadyStageNumber(to); next == stage+1 {
				return true
			}
			return stage == 3 && to == SprintReadyReview
		}
	}
	return false
}

// PushEnvelope is the standard /workflow inter-component push message: a
// purpose label per addressed component, a destination component id, and
// an opaque payload (typically a sprint or execution summary).
type PushEnvelope struct {
	Purpose map[string]string `json:"purpose"`
	Dest    string            `json:"dest"`
	Payload interface{}       `json:"payload"`
}

// NewPush builds a PushEnvelope addressed to dest, describing purpose
// for every component named in purposeByComponent.
func NewPush(dest string, purposeByComponent map[string]string, payload interface{}) PushEnvelope {
	return PushEnvelope{Purpose: purposeByComponent, Dest: dest, Payload: payload}
}

// NewPushWebhookHandler specializes the generic webhook.Handler for the
// /workflow envelope: decode into a PushEnvelope, then hand it to
// process (typically advancing a sprint's status or dispatching the
// payload to the addressed component).
func NewPushWebhookHandler(process func(context.Context, PushEnvelope) error, logger *logrus.Logger) *webhook.Handler {
	return &webhook.Handler{
		Decode: func(body []byte) (interface{}, error) {
			var env PushEnvelope
			if err := json.Unmarshal(body, &env); err != nil {
				return nil, err
			}
			return env, nil
		},
		Process: func(ctx context.Context, payload interface{}) error {
			return process(ctx, payload.(PushEnvelope))
		},
		Logger: logger,
	}
}
