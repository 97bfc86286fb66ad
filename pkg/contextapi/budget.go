package contextapi

import (
	"github.com/ckoons/tekton-core/internal/errors"
)

// Thresholds are expressed as fractions of HardLimit: soft at 0.70,
// sunset at 0.80, hard at 0.95.
type Thresholds struct {
	Soft   float64
	Sunset float64
	Hard   float64
}

// DefaultThresholds matches spec.md §4.4 and internal/config's
// ContextConfig defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Soft: 0.70, Sunset: 0.80, Hard: 0.95}
}

// NewBudgetRecord initializes a fresh ledger for a CI/model pair.
func NewBudgetRecord(ciName, model string, hardLimit int, t Thresholds) *BudgetRecord {
	return &BudgetRecord{
		CIName:      ciName,
		Model:       model,
		HardLimit:   hardLimit,
		SoftLimit:   int(float64(hardLimit) * t.Soft),
		SunsetState: StateAwake,
	}
}

// RecordTurn increments current_tokens by consumed and decrements it
// by dropped (tokens reclaimed via summarization or sunset), updating
// the rolling per-turn rate. It returns context_exhausted once
// current_tokens/hard_limit reaches the hard threshold.
func (b *BudgetRecord) RecordTurn(consumed, dropped int, t Thresholds) error {
	b.LastTurnTokens = consumed
	b.CurrentTokens += consumed
	b.CurrentTokens -= dropped
	if b.CurrentTokens < 0 {
		b.CurrentTokens = 0
	}

	const rollingWeight = 0.3
	b.RollingRate = rollingWeight*float64(consumed) + (1-rollingWeight)*b.RollingRate

	if b.HardLimit > 0 && float64(b.CurrentTokens)/float64(b.HardLimit) >= t.Hard {
		return errors.NewContextExhaustedError(b.CIName)
	}
	return nil
}

// NeedsSunset reports whether current_tokens has crossed the sunset
// threshold and the CI isn't already sunset.
func (b *BudgetRecord) NeedsSunset(t Thresholds) bool {
	if b.SunsetState == StateSunset || b.HardLimit <= 0 {
		return false
	}
	return float64(b.CurrentTokens)/float64(b.HardLimit) >= t.Sunset
}

// BudgetExceededError reports a soft-threshold breach that callers may
// want to surface without treating as fatal.
func BudgetExceededError(ciName string) error {
	return errors.NewValidationError("budget_exceeded: " + ciName + " approaching its soft limit")
}
