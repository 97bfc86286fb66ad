package contextapi

import "sort"

// DefaultMaxInjectionTokens is the per-turn memory injection budget
// when a CI doesn't configure its own.
const DefaultMaxInjectionTokens = 2000

// Pack sorts candidates by score desc (then ID asc for a stable,
// reproducible prompt), then greedily packs them into budget tokens.
// When an item's full content doesn't fit but its summary does, the
// summary is substituted and only its token cost counted. An item that
// doesn't fit even as a summary is skipped, not truncated.
func Pack(scored []ScoredItem, budget int, costOf func(string) int) []PackedItem {
	candidates := append([]ScoredItem(nil), scored...)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Item.ID < candidates[j].Item.ID
	})

	var packed []PackedItem
	remaining := budget
	for _, c := range candidates {
		item := c.Item
		if item.Tokens <= remaining {
			packed = append(packed, PackedItem{Item: item, Text: item.Content, Tokens: item.Tokens, Summarized: false})
			remaining -= item.Tokens
			continue
		}

		summaryTokens := costOf(item.Summary)
		if item.Summary != "" && summaryTokens <= remaining {
			packed = append(packed, PackedItem{Item: item, Text: item.Summary, Tokens: summaryTokens, Summarized: true})
			remaining -= summaryTokens
			continue
		}
		// Doesn't fit even summarized; skip.
	}
	return packed
}

// PackedItem is one item that made it into an injection, in the order
// it was packed.
type PackedItem struct {
	Item       *MemoryItem
	Text       string
	Tokens     int
	Summarized bool
}

// TotalTokens sums the token cost of every packed item.
func TotalTokens(packed []PackedItem) int {
	var total int
	for _, p := range packed {
		total += p.Tokens
	}
	return total
}
