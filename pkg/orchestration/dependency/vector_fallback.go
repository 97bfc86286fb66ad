package dependency

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	sharedmath "github.com/ckoons/tekton-core/pkg/shared/math"
)

// VectorSearchResult is one hit from InMemoryVectorFallback's similarity
// search, ordered by descending Similarity.
type VectorSearchResult struct {
	ID         string
	Similarity float64
	Metadata   map[string]interface{}
}

type storedVector struct {
	vector   []float64
	metadata map[string]interface{}
}

// InMemoryVectorFallback stands in for the Context Core's vector-backed
// candidate store when it's unreachable: it supports the same "store" and
// "search" operations against an in-process map, at the cost of durability
// and scale.
type InMemoryVectorFallback struct {
	metricsTracker
	mu      sync.RWMutex
	vectors map[string]storedVector
	logger  *logrus.Logger
}

// NewInMemoryVectorFallback builds an empty in-memory vector fallback.
func NewInMemoryVectorFallback(logger *logrus.Logger) *InMemoryVectorFallback {
	return &InMemoryVectorFallback{
		vectors: make(map[string]storedVector),
		logger:  logger,
	}
}

// ProvideFallback handles "store" (persist an embedding) and "search"
// (cosine-similarity nearest neighbors) operations.
func (f *InMemoryVectorFallback) ProvideFallback(ctx context.Context, operation string, params map[string]interface{}) (interface{}, error) {
	switch operation {
	case "store":
		result, err := f.store(params)
		f.record(err)
		return result, err
	case "search":
		result, err := f.search(params)
		f.record(err)
		return result, err
	default:
		err := fmt.Errorf("vector fallback does not support operation %q", operation)
		f.record(err)
		return nil, err
	}
}

func (f *InMemoryVectorFallback) record(err error) {
	if err != nil {
		f.recordFailure()
		return
	}
	f.recordSuccess()
}

func (f *InMemoryVectorFallback) store(params map[string]interface{}) (interface{}, error) {
	id, _ := params["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("vector fallback store requires an id")
	}
	vector, err := toFloat64Slice(params["vector"])
	if err != nil {
		return nil, err
	}
	metadata, _ := params["metadata"].(map[string]interface{})

	f.mu.Lock()
	f.vectors[id] = storedVector{vector: vector, metadata: metadata}
	f.mu.Unlock()

	return id, nil
}

func (f *InMemoryVectorFallback) search(params map[string]interface{}) (interface{}, error) {
	query, err := toFloat64Slice(params["vector"])
	if err != nil {
		return nil, err
	}
	limit := 10
	if raw, ok := params["limit"].(int); ok && raw > 0 {
		limit = raw
	}

	f.mu.RLock()
	results := make([]VectorSearchResult, 0, len(f.vectors))
	for id, stored := range f.vectors {
		similarity := f.CalculateSimilarity(query, stored.vector)
		if similarity <= 0 {
			continue
		}
		results = append(results, VectorSearchResult{ID: id, Similarity: similarity, Metadata: stored.metadata})
	}
	f.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CalculateSimilarity delegates to the shared cosine-similarity helper
// used throughout Tekton's relevance scoring.
func (f *InMemoryVectorFallback) CalculateSimilarity(a, b []float64) float64 {
	return sharedmath.CosineSimilarity(a, b)
}

// GetMetrics returns a snapshot of this fallback's usage counters.
func (f *InMemoryVectorFallback) GetMetrics() FallbackMetrics {
	return f.snapshot()
}

func toFloat64Slice(value interface{}) ([]float64, error) {
	vector, ok := value.([]float64)
	if !ok {
		return nil, fmt.Errorf("expected []float64, got %T", value)
	}
	return vector, nil
}
