package contextapi

import (
	"regexp"
	"strings"
	"time"

	"github.com/ckoons/tekton-core/internal/errors"
)

// SunsetProtocolMarker is the literal system prompt emitted on the
// turn a CI is drained, and the explicit signature auto-detection
// always recognizes regardless of configured patterns.
const SunsetProtocolMarker = "SUNSET_PROTOCOL"

// Detector recognizes a CI response that should auto-promote it to
// sunset even without an explicit threshold trigger.
type Detector struct {
	patterns []*regexp.Regexp
}

// NewDetector compiles the deployment's configured sunset signature
// patterns. Invalid patterns are skipped rather than failing startup;
// the literal SUNSET_PROTOCOL marker is always recognized regardless.
func NewDetector(patterns []string) *Detector {
	d := &Detector{}
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			d.patterns = append(d.patterns, re)
		}
	}
	return d
}

// Matches reports whether output carries a sunset signature.
func (d *Detector) Matches(output string) bool {
	if strings.Contains(output, SunsetProtocolMarker) {
		return true
	}
	for _, re := range d.patterns {
		if re.MatchString(output) {
			return true
		}
	}
	return false
}

// Sunset transitions a budget record to the sunset state, capturing
// the CI's drained response as its sunrise context. Sunset operations
// are not cancellable once committed: callers must persist the
// resulting record before acting on it further.
func Sunset(b *BudgetRecord, sunriseContext string, now time.Time) {
	b.SunsetState = StateSunset
	b.SunriseContext = sunriseContext
	b.SunsetAt = now
}

// Sunrise restores a sunset CI. It is idempotent: sunrise-ing a CI
// that's already awake is a no-op rather than an error, matching the
// invariant that repeated sunrise commands without an intervening
// sunset don't double-apply the delta.
func Sunrise(b *BudgetRecord) error {
	if b.SunsetState == StateAwake {
		return nil
	}
	if b.SunriseContext == "" {
		return errors.NewValidationError("sunrise_without_context: no sunrise context captured for " + b.CIName)
	}

	b.SunsetState = StateAwake
	b.SunriseContext = ""
	b.SunsetAt = time.Time{}
	return nil
}

// RejectIfAsleep returns ci_asleep when b is in the sunset state; a
// sunset CI rejects every normal message until sunrise is applied.
func RejectIfAsleep(b *BudgetRecord) error {
	if b.SunsetState == StateSunset {
		return errors.NewCIAsleepError(b.CIName)
	}
	return nil
}

// SunriseDelta renders the "what happened while you rested" summary:
// a brief listing of catalog items created after sunsetAt.
func SunriseDelta(itemsSinceSunset []*MemoryItem) string {
	if len(itemsSinceSunset) == 0 {
		return "Nothing new happened while you rested."
	}

	var b strings.Builder
	b.WriteString("While you rested:\n")
	for _, item := range itemsSinceSunset {
		b.WriteString("- ")
		if item.Summary != "" {
			b.WriteString(item.Summary)
		} else {
			b.WriteString(item.Content)
		}
		b.WriteString("\n")
	}
	return b.String()
}
