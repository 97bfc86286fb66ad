package contextapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTagOverlap_EmptyItemTags(t *testing.T) {
	assert.Equal(t, 0.0, tagOverlap(nil, []string{"a"}))
}

func TestTagOverlap_FullMatch(t *testing.T) {
	assert.Equal(t, 1.0, tagOverlap([]string{"a", "b"}, []string{"a", "b", "c"}))
}

func TestTagOverlap_PartialMatch(t *testing.T) {
	assert.InDelta(t, 0.5, tagOverlap([]string{"a", "b"}, []string{"a"}), 1e-9)
}

func TestRelevance_AffinityMatchesCISource(t *testing.T) {
	now := time.Now()
	item := &MemoryItem{CISource: "apollo", CreatedAt: now, Priority: 0}

	withAffinity := relevance(item, "apollo", nil, now)
	withoutAffinity := relevance(item, "athena", nil, now)

	assert.Greater(t, withAffinity, withoutAffinity)
}

func TestRelevance_RecencyDecaysWithAge(t *testing.T) {
	now := time.Now()
	fresh := &MemoryItem{CreatedAt: now}
	stale := &MemoryItem{CreatedAt: now.Add(-500 * time.Hour)}

	assert.Greater(t, relevance(fresh, "", nil, now), relevance(stale, "", nil, now))
}

func TestRelevance_ClampedToUnitInterval(t *testing.T) {
	now := time.Now()
	item := &MemoryItem{CISource: "apollo", CreatedAt: now, Priority: 10, Tags: []string{"x"}}

	score := relevance(item, "apollo", []string{"x"}, now)
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestRelevance_PriorityContributesLinearly(t *testing.T) {
	now := time.Now()
	low := &MemoryItem{CreatedAt: now, Priority: 0}
	high := &MemoryItem{CreatedAt: now, Priority: 10}

	assert.Greater(t, relevance(high, "", nil, now), relevance(low, "", nil, now))
}
