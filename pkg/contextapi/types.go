// Package contextapi implements the Context/Memory Management Core: the
// per-CI token budget ledger, the token-bounded Memory Catalog with
// relevance-based selection, and the sunset/sunrise protocol that
// drains and restores a CI approaching its model's context limit.
package contextapi

import "time"

// ItemKind classifies a MemoryItem for scoring and display.
type ItemKind string

const (
	KindDecision ItemKind = "decision"
	KindInsight  ItemKind = "insight"
	KindContext  ItemKind = "context"
	KindError    ItemKind = "error"
	KindPlan     ItemKind = "plan"
)

// MemoryItem is one recallable unit in a Memory Catalog. Tokens must
// equal cost(Content) at insert time (see tokenizer.go); expired items
// are elided from Select but retained until the next decay Sweep.
type MemoryItem struct {
	ID         string    `json:"id" validate:"required"`
	CISource   string    `json:"ci_source"`
	Kind       ItemKind  `json:"kind"`
	Summary    string    `json:"summary"`
	Content    string    `json:"content" validate:"required"`
	Tokens     int       `json:"tokens" validate:"gte=0"`
	Tags       []string  `json:"tags"`
	Priority   int       `json:"priority" validate:"gte=0,lte=10"` // 0..10
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	References []string  `json:"references,omitempty"`
}

// SunsetState tracks a CI's position in the sunset/sunrise protocol.
type SunsetState string

const (
	StateAwake  SunsetState = "awake"
	StateSunset SunsetState = "sunset"
)

// BudgetRecord is the per-CI/model token accounting ledger.
type BudgetRecord struct {
	CIName         string      `json:"ci_name"`
	Model          string      `json:"model"`
	CurrentTokens  int         `json:"current_tokens"`
	HardLimit      int         `json:"hard_limit"`
	SoftLimit      int         `json:"soft_limit"`
	LastTurnTokens int         `json:"last_turn_tokens"`
	RollingRate    float64     `json:"rolling_rate"`
	SunsetState    SunsetState `json:"sunset_state"`

	SunriseContext string    `json:"sunrise_context,omitempty"`
	SunsetAt       time.Time `json:"sunset_at,omitempty"`
}

// ScoredItem pairs a candidate MemoryItem with its computed relevance
// score for one Select call.
type ScoredItem struct {
	Item  *MemoryItem
	Score float64
}

// SelectionInput gathers the parameters Select needs beyond the
// catalog's stored items.
type SelectionInput struct {
	CIName      string
	ContextTags []string
	Now         time.Time
}
