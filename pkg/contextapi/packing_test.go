package contextapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func wordCost(s string) int {
	return wordEstimate(s)
}

func TestPack_OrdersByScoreDescending(t *testing.T) {
	scored := []ScoredItem{
		{Item: &MemoryItem{ID: "low", Content: "a", Tokens: 1}, Score: 0.1},
		{Item: &MemoryItem{ID: "high", Content: "b", Tokens: 1}, Score: 0.9},
	}

	packed := Pack(scored, 10, wordCost)
	assert.Len(t, packed, 2)
	assert.Equal(t, "high", packed[0].Item.ID)
	assert.Equal(t, "low", packed[1].Item.ID)
}

func TestPack_TiesBrokenByIDAscending(t *testing.T) {
	scored := []ScoredItem{
		{Item: &MemoryItem{ID: "zzz", Content: "a", Tokens: 1}, Score: 0.5},
		{Item: &MemoryItem{ID: "aaa", Content: "b", Tokens: 1}, Score: 0.5},
	}

	packed := Pack(scored, 10, wordCost)
	assert.Equal(t, "aaa", packed[0].Item.ID)
	assert.Equal(t, "zzz", packed[1].Item.ID)
}

func TestPack_FallsBackToSummaryWhenContentDoesNotFit(t *testing.T) {
	scored := []ScoredItem{
		{Item: &MemoryItem{ID: "a", Content: "full content here", Summary: "short", Tokens: 100}, Score: 1.0},
	}

	packed := Pack(scored, 5, func(s string) int { return len(s) })
	assert.Len(t, packed, 1)
	assert.True(t, packed[0].Summarized)
	assert.Equal(t, "short", packed[0].Text)
}

func TestPack_SkipsItemThatDoesNotFitEvenSummarized(t *testing.T) {
	scored := []ScoredItem{
		{Item: &MemoryItem{ID: "a", Content: "long content", Summary: "still too long", Tokens: 100}, Score: 1.0},
	}

	packed := Pack(scored, 1, func(s string) int { return len(s) })
	assert.Empty(t, packed)
}

func TestPack_GreedilyFillsBudgetAcrossMultipleItems(t *testing.T) {
	scored := []ScoredItem{
		{Item: &MemoryItem{ID: "a", Content: "x", Tokens: 5}, Score: 0.9},
		{Item: &MemoryItem{ID: "b", Content: "y", Tokens: 5}, Score: 0.8},
		{Item: &MemoryItem{ID: "c", Content: "z", Tokens: 5}, Score: 0.7},
	}

	packed := Pack(scored, 10, wordCost)
	assert.Len(t, packed, 2)
	assert.Equal(t, 10, TotalTokens(packed))
}
