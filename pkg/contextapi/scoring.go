package contextapi

import (
	"time"

	sharedmath "github.com/ckoons/tekton-core/pkg/shared/math"
)

// halfLifeHours is the recency term's exponential decay constant: one
// week, per spec.
const halfLifeHours = 168.0

// relevance computes the weighted score spec.md §4.4 defines:
// 0.3·recency + 0.4·tag_overlap + 0.2·affinity + 0.1·priority_norm,
// clamped to [0,1].
func relevance(item *MemoryItem, ciName string, contextTags []string, now time.Time) float64 {
	ageHours := now.Sub(item.CreatedAt).Hours()
	recency := sharedmath.RecencyScore(ageHours, halfLifeHours)

	overlap := tagOverlap(item.Tags, contextTags)

	affinity := 0.0
	if item.CISource == ciName {
		affinity = 1.0
	}

	priorityNorm := float64(item.Priority) / 10.0

	score := 0.3*recency + 0.4*overlap + 0.2*affinity + 0.1*priorityNorm
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// tagOverlap is |item.tags ∩ context_tags| / max(|item.tags|, 1).
func tagOverlap(itemTags, contextTags []string) float64 {
	if len(itemTags) == 0 {
		return 0
	}
	wanted := make(map[string]struct{}, len(contextTags))
	for _, t := range contextTags {
		wanted[t] = struct{}{}
	}

	var matched int
	for _, t := range itemTags {
		if _, ok := wanted[t]; ok {
			matched++
		}
	}

	denom := len(itemTags)
	if denom < 1 {
		denom = 1
	}
	return float64(matched) / float64(denom)
}
