package vector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/errors"
	sharedmath "github.com/ckoons/tekton-core/pkg/shared/math"
)

// MemoryVectorStore is an in-process, mutex-protected Memory Catalog
// backed by brute-force cosine similarity. It is the default backend:
// no external vector database is required to run a single Tekton
// deployment. It is not used as a fallback: a persistent backend that
// cannot be built is reported as an error.
type MemoryVectorStore struct {
	mu     sync.RWMutex
	items  map[string]*CatalogItem
	logger *logrus.Logger
}

// NewMemoryVectorStore creates an empty in-memory catalog.
func NewMemoryVectorStore(logger *logrus.Logger) *MemoryVectorStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &MemoryVectorStore{
		items:  make(map[string]*CatalogItem),
		logger: logger,
	}
}

// StoreItem stores or overwrites an item, stamping CreatedAt on first
// insert and UpdatedAt on every call.
func (s *MemoryVectorStore) StoreItem(ctx context.Context, item *CatalogItem) error {
	if item.ID == "" {
		return fmt.Errorf("pattern ID cannot be empty")
	}
	if len(item.Embedding) == 0 {
		return fmt.Errorf("pattern embedding cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.items[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	s.items[item.ID] = item
	return nil
}

// GetItem returns the item with the given ID.
func (s *MemoryVectorStore) GetItem(id string) (*CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("pattern with ID %s", id))
	}
	return item, nil
}

// FindSimilarItems ranks every stored item (other than the query itself,
// if it happens to already be stored) by cosine similarity to the
// query's embedding, keeping only matches at or above threshold and
// capping the result at limit.
func (s *MemoryVectorStore) FindSimilarItems(ctx context.Context, query *CatalogItem, limit int, threshold float64) ([]SimilarItem, error) {
	if len(query.Embedding) == 0 {
		return nil, fmt.Errorf("query pattern embedding cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []SimilarItem
	for id, item := range s.items {
		if id == query.ID {
			continue
		}
		sim := sharedmath.CosineSimilarity(query.Embedding, item.Embedding)
		if sim >= threshold {
			matches = append(matches, SimilarItem{Item: item, Similarity: sim})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}
	return matches, nil
}

// UpdateRecallScore sets an item's recall effectiveness score, creating
// RecallStats if the item didn't have any yet.
func (s *MemoryVectorStore) UpdateRecallScore(ctx context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("pattern with ID %s", id))
	}
	if item.RecallStats == nil {
		item.RecallStats = &RecallStats{}
	}
	item.RecallStats.Score = score
	item.RecallStats.LastAssessed = time.Now()
	return nil
}

// SearchBySemantics does a simple substring match against an item's
// topic, kind, project, and source type, returning hits sorted by
// recall score descending. It exists for operators poking at the
// catalog without an embedding query to hand; the real candidate
// shortlisting path goes through FindSimilarItems.
func (s *MemoryVectorStore) SearchBySemantics(ctx context.Context, query string, limit int) ([]*CatalogItem, error) {
	needle := strings.ToLower(query)

	s.mu.RLock()
	var hits []*CatalogItem
	for _, item := range s.items {
		haystack := strings.ToLower(item.Kind + " " + item.Topic + " " + item.Project + " " + item.SourceType)
		if strings.Contains(haystack, needle) {
			hits = append(hits, item)
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		return recallScore(hits[i]) > recallScore(hits[j])
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func recallScore(item *CatalogItem) float64 {
	if item.RecallStats == nil {
		return 0
	}
	return item.RecallStats.Score
}

// DeleteItem removes an item from the catalog.
func (s *MemoryVectorStore) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return errors.NewNotFoundError(fmt.Sprintf("pattern with ID %s", id))
	}
	delete(s.items, id)
	return nil
}

// GetCatalogAnalytics summarizes the catalog's contents.
func (s *MemoryVectorStore) GetCatalogAnalytics(ctx context.Context) (*CatalogAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	analytics := &CatalogAnalytics{
		ItemsByKind:             make(map[string]int),
		ItemsByImportance:       make(map[string]int),
		RecallScoreDistribution: make(map[string]int),
	}

	var scores []float64
	all := make([]*CatalogItem, 0, len(s.items))
	for _, item := range s.items {
		all = append(all, item)
		analytics.ItemsByKind[item.Kind]++
		analytics.ItemsByImportance[item.Importance]++
		if item.RecallStats != nil {
			scores = append(scores, item.RecallStats.Score)
			analytics.RecallScoreDistribution[effectivenessBucket(item.RecallStats.Score)]++
		}
	}
	analytics.TotalItems = len(all)

	if len(scores) > 0 {
		analytics.AverageRecallScore = sharedmath.Mean(scores)
	}

	topPerforming := make([]*CatalogItem, 0, len(all))
	for _, item := range all {
		if item.RecallStats != nil {
			topPerforming = append(topPerforming, item)
		}
	}
	sort.Slice(topPerforming, func(i, j int) bool {
		return topPerforming[i].RecallStats.Score > topPerforming[j].RecallStats.Score
	})
	if len(topPerforming) > 10 {
		topPerforming = topPerforming[:10]
	}
	analytics.TopPerformingItems = topPerforming

	recent := append([]*CatalogItem(nil), all...)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	analytics.RecentItems = recent

	return analytics, nil
}

func effectivenessBucket(score float64) string {
	switch {
	case score >= 0.9:
		return "excellent"
	case score >= 0.75:
		return "very_good"
	case score >= 0.7:
		return "good"
	case score >= 0.4:
		return "fair"
	default:
		return "poor"
	}
}

// IsHealthy always succeeds for the in-memory backend; it exists so
// Store callers can treat every backend uniformly.
func (s *MemoryVectorStore) IsHealthy(ctx context.Context) error {
	return nil
}

// Clear empties the catalog.
func (s *MemoryVectorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*CatalogItem)
}

// GetItemCount reports how many items are currently stored.
func (s *MemoryVectorStore) GetItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
