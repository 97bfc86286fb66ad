package vector

import (
	"context"
	"time"
)

// Store is the similarity-search contract the Context/Memory Management
// Core depends on; MemoryVectorStore is the in-process implementation,
// with room for a persistent backend behind the same interface.
type Store interface {
	StoreItem(ctx context.Context, item *CatalogItem) error
	GetItem(id string) (*CatalogItem, error)
	FindSimilarItems(ctx context.Context, query *CatalogItem, limit int, threshold float64) ([]SimilarItem, error)
	UpdateRecallScore(ctx context.Context, id string, score float64) error
	SearchBySemantics(ctx context.Context, query string, limit int) ([]*CatalogItem, error)
	DeleteItem(ctx context.Context, id string) error
	GetCatalogAnalytics(ctx context.Context) (*CatalogAnalytics, error)
	IsHealthy(ctx context.Context) error
	Clear()
	GetItemCount() int
}

// EmbeddingGenerator produces vector embeddings for text and structured
// activity so callers don't need an external embedding provider to
// exercise the catalog.
type EmbeddingGenerator interface {
	GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error)
	GenerateActionEmbedding(ctx context.Context, kind string, attributes map[string]interface{}) ([]float64, error)
	GetEmbeddingDimension() int
}

// ActivityTrace is a completed unit of work (a workflow task, a CI
// exchange) that an Extractor turns into a catalog item.
type ActivityTrace struct {
	Kind       string
	Topic      string
	Importance string
	Project    string
	SourceType string
	SourceID   string
	Attributes map[string]interface{}
	Trigger    map[string]interface{}
	Outcome    map[string]interface{}
	Tags       map[string]string
	OccurredAt time.Time
}

// Extractor turns an ActivityTrace into a storable CatalogItem,
// generating its embedding along the way.
type Extractor interface {
	ExtractItem(ctx context.Context, trace ActivityTrace) (*CatalogItem, error)
}
