package vector

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/config"
)

// VectorDatabaseFactory builds the configured Store implementation. The
// persistent "postgres" backend (pgvector over the pkg/datastorage
// repository layer) is not wired here; see DESIGN.md.
type VectorDatabaseFactory struct {
	config *config.VectorDBConfig
	db     *sql.DB
	logger *logrus.Logger
}

// NewVectorDatabaseFactory builds a factory. Any argument may be nil;
// CreateVectorDatabase falls back to sensible defaults.
func NewVectorDatabaseFactory(cfg *config.VectorDBConfig, db *sql.DB, logger *logrus.Logger) *VectorDatabaseFactory {
	if logger == nil {
		logger = logrus.New()
	}
	return &VectorDatabaseFactory{config: cfg, db: db, logger: logger}
}

// CreateVectorDatabase returns the configured Store, or an in-memory
// one if the catalog is disabled or unconfigured.
func (f *VectorDatabaseFactory) CreateVectorDatabase() (Store, error) {
	if f.config == nil || !f.config.Enabled {
		f.logger.Debug("vector database disabled, using in-memory fallback")
		return NewMemoryVectorStore(f.logger), nil
	}

	switch f.config.Backend {
	case "", "memory":
		return NewMemoryVectorStore(f.logger), nil
	case "postgres", "postgresql":
		return nil, fmt.Errorf("postgres-backed vector store is not available; run with backend=memory")
	default:
		return nil, fmt.Errorf("unsupported vector database backend: %s", f.config.Backend)
	}
}

// CreateEmbeddingGenerator returns the configured EmbeddingGenerator.
func (f *VectorDatabaseFactory) CreateEmbeddingGenerator() EmbeddingGenerator {
	dimension := defaultEmbeddingDimension
	if f.config != nil && f.config.EmbeddingService.Dimension > 0 {
		dimension = f.config.EmbeddingService.Dimension
	}
	return NewLocalEmbeddingService(dimension, f.logger)
}
