package contextapi

import (
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ckoons/tekton-core/internal/errors"
)

var structValidator = validator.New()

// MaxMemoriesPerCI bounds a single CI's catalog before eviction kicks
// in on the next insert.
const MaxMemoriesPerCI = 500

// Catalog is a per-CI or global collection of MemoryItems, bounded by
// MaxMemoriesPerCI and a periodic decay Sweep. Reads never exceed the
// per-injection token budget (enforced by SelectAndPack, not by storage).
type Catalog struct {
	mu         sync.RWMutex
	scope      string // CI name, or "" for the shared global scope
	items      map[string]*MemoryItem
	tokenizer  *Tokenizer
}

// NewCatalog builds an empty catalog for scope ("" for global).
func NewCatalog(scope string, tokenizer *Tokenizer) *Catalog {
	return &Catalog{scope: scope, items: make(map[string]*MemoryItem), tokenizer: tokenizer}
}

// Insert stores item, computing its token cost from Content if not
// already set, and evicting the lowest-score expired entry (then the
// lowest-score non-permanent entry) if the catalog is at capacity. This
// is the catalog-append ingestion boundary: item is struct-validated
// before anything else.
func (c *Catalog) Insert(item *MemoryItem, now time.Time) error {
	if err := structValidator.Struct(item); err != nil {
		return errors.NewValidationError("memory item failed validation: " + err.Error())
	}

	if item.Tokens == 0 && c.tokenizer != nil {
		item.Tokens = c.tokenizer.Cost(item.Content)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[item.ID]; !exists && len(c.items) >= MaxMemoriesPerCI {
		if !c.evictLocked(now) {
			return errors.NewCatalogFullError(c.scope)
		}
	}
	c.items[item.ID] = item
	return nil
}

// evictLocked removes one entry to make room: first the lowest-score
// expired entry, falling back to the lowest-score non-permanent entry.
// Caller must hold c.mu. Returns false if nothing could be evicted.
func (c *Catalog) evictLocked(now time.Time) bool {
	var bestExpiredID, bestNonPermanentID string
	bestExpiredScore, bestNonPermanentScore := 2.0, 2.0 // scores are in [0,1]; 2.0 is "unset"

	for id, item := range c.items {
		score := relevance(item, c.scope, nil, now)
		expired := !item.ExpiresAt.IsZero() && now.After(item.ExpiresAt)
		if expired && score < bestExpiredScore {
			bestExpiredScore, bestExpiredID = score, id
		}
		if item.Priority < DefaultPermanentThreshold && score < bestNonPermanentScore {
			bestNonPermanentScore, bestNonPermanentID = score, id
		}
	}

	if bestExpiredID != "" {
		delete(c.items, bestExpiredID)
		return true
	}
	if bestNonPermanentID != "" {
		delete(c.items, bestNonPermanentID)
		return true
	}
	return false
}

// Sweep runs the periodic decay pass, removing expired non-permanent
// items in place.
func (c *Catalog) Sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	survivors := Sweep(c.valuesLocked(), now, DefaultPermanentThreshold)
	c.items = make(map[string]*MemoryItem, len(survivors))
	for _, item := range survivors {
		c.items[item.ID] = item
	}
}

func (c *Catalog) valuesLocked() []*MemoryItem {
	out := make([]*MemoryItem, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	return out
}

// Select computes each non-expired candidate's relevance score for
// input, sorted by score desc then ID asc for a stable, reproducible
// ordering.
func (c *Catalog) Select(input SelectionInput) []ScoredItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	scored := make([]ScoredItem, 0, len(c.items))
	for _, item := range c.items {
		if !item.ExpiresAt.IsZero() && input.Now.After(item.ExpiresAt) {
			continue
		}
		scored = append(scored, ScoredItem{
			Item:  item,
			Score: relevance(item, input.CIName, input.ContextTags, input.Now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.ID < scored[j].Item.ID
	})
	return scored
}

// SelectAndPack runs Select then Pack against maxInjectionTokens in
// one call — the common path an outbound turn takes.
func (c *Catalog) SelectAndPack(input SelectionInput, maxInjectionTokens int) []PackedItem {
	scored := c.Select(input)
	costOf := func(text string) int {
		if c.tokenizer == nil {
			return wordEstimate(text)
		}
		return c.tokenizer.Cost(text)
	}
	return Pack(scored, maxInjectionTokens, costOf)
}

// ItemsSince returns every item created at or after since, used to
// assemble the sunrise "what happened while you rested" delta.
func (c *Catalog) ItemsSince(since time.Time) []*MemoryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*MemoryItem
	for _, item := range c.items {
		if !item.CreatedAt.Before(since) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count reports how many items are currently stored.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
