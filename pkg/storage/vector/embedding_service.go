package vector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultEmbeddingDimension = 384

// LocalEmbeddingService produces deterministic, dependency-free text
// embeddings by hashing tokens into buckets of a fixed-size vector and
// L2-normalizing the result. It exists so the Memory Catalog has
// useful embeddings without a network call to an embedding provider;
// pkg/ai/llm can swap in a model-backed EmbeddingGenerator later
// behind the same interface.
type LocalEmbeddingService struct {
	dimension int
	logger    *logrus.Logger
}

// NewLocalEmbeddingService creates a hashing-based embedding service of
// the given dimension, falling back to defaultEmbeddingDimension for a
// non-positive input.
func NewLocalEmbeddingService(dimension int, logger *logrus.Logger) *LocalEmbeddingService {
	if dimension <= 0 {
		dimension = defaultEmbeddingDimension
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &LocalEmbeddingService{dimension: dimension, logger: logger}
}

// GetEmbeddingDimension reports the vector length this service produces.
func (s *LocalEmbeddingService) GetEmbeddingDimension() int {
	return s.dimension
}

// GenerateTextEmbedding tokenizes text on non-alphanumeric boundaries,
// hashes each token into a bucket, and L2-normalizes the accumulated
// vector. Empty text yields the zero vector.
func (s *LocalEmbeddingService) GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, s.dimension)
	for _, token := range tokenize(text) {
		bucket := int(hashString(token) % uint32(s.dimension))
		vec[bucket] += 1.0
	}
	normalize(vec)
	return vec, nil
}

// GenerateActionEmbedding embeds an activity's kind alongside its
// attributes, serialized as "key=value" tokens so parameter values
// participate in the hash alongside the action's name.
func (s *LocalEmbeddingService) GenerateActionEmbedding(ctx context.Context, kind string, attributes map[string]interface{}) ([]float64, error) {
	var b strings.Builder
	b.WriteString(kind)

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, attributes[k])
	}

	return s.GenerateTextEmbedding(ctx, b.String())
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func normalize(vec []float64) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return
	}
	magnitude := math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] /= magnitude
	}
}
