package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultExtractor turns an ActivityTrace into a CatalogItem, generating
// an embedding from the trace's kind, topic, and attributes when an
// EmbeddingGenerator is available.
type DefaultExtractor struct {
	embedder EmbeddingGenerator
	logger   *logrus.Logger
}

// NewDefaultExtractor builds an Extractor. embedder may be nil, in
// which case extracted items carry no embedding and can't be found by
// FindSimilarItems until one is backfilled.
func NewDefaultExtractor(embedder EmbeddingGenerator, logger *logrus.Logger) *DefaultExtractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &DefaultExtractor{embedder: embedder, logger: logger}
}

// ExtractItem builds a CatalogItem from trace, stamping a fresh ID and,
// when an embedder is configured, an embedding over the trace's kind
// and attributes.
func (e *DefaultExtractor) ExtractItem(ctx context.Context, trace ActivityTrace) (*CatalogItem, error) {
	item := &CatalogItem{
		ID:             uuid.NewString(),
		Kind:           trace.Kind,
		Topic:          trace.Topic,
		Importance:     trace.Importance,
		Project:        trace.Project,
		SourceType:     trace.SourceType,
		SourceID:       trace.SourceID,
		Attributes:     trace.Attributes,
		Tags:           trace.Tags,
		TriggerContext: trace.Trigger,
		Outcome:        trace.Outcome,
		CreatedAt:      trace.OccurredAt,
		UpdatedAt:      trace.OccurredAt,
	}

	if e.embedder != nil {
		embedding, err := e.embedder.GenerateActionEmbedding(ctx, trace.Kind, trace.Attributes)
		if err != nil {
			return nil, fmt.Errorf("generating embedding for extracted item: %w", err)
		}
		item.Embedding = embedding
	}

	return item, nil
}
