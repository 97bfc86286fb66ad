package vector_test

import (
	"database/sql"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/config"
	"github.com/ckoons/tekton-core/pkg/storage/vector"
)

var _ = Describe("VectorDatabaseFactory", func() {
	var (
		factory *vector.VectorDatabaseFactory
		logger  *logrus.Logger
		db      *sql.DB
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		db = nil
	})

	Describe("NewVectorDatabaseFactory", func() {
		It("should create a new factory instance", func() {
			cfg := &config.VectorDBConfig{Enabled: true, Backend: "memory"}
			factory = vector.NewVectorDatabaseFactory(cfg, db, logger)
			Expect(factory).NotTo(BeNil())
		})

		It("should handle nil parameters gracefully", func() {
			factory = vector.NewVectorDatabaseFactory(nil, nil, nil)
			Expect(factory).NotTo(BeNil())
		})
	})

	Describe("CreateVectorDatabase", func() {
		Context("when the catalog is disabled", func() {
			It("should fall back to the in-memory store", func() {
				factory = vector.NewVectorDatabaseFactory(&config.VectorDBConfig{Enabled: false}, db, logger)

				store, err := factory.CreateVectorDatabase()

				Expect(err).NotTo(HaveOccurred())
				Expect(store).NotTo(BeNil())
			})
		})

		Context("when the backend is memory", func() {
			It("should create an in-memory store", func() {
				cfg := &config.VectorDBConfig{
					Enabled: true,
					Backend: "memory",
					EmbeddingService: config.EmbeddingConfig{Service: "local", Dimension: 384},
				}
				factory = vector.NewVectorDatabaseFactory(cfg, db, logger)

				store, err := factory.CreateVectorDatabase()

				Expect(err).NotTo(HaveOccurred())
				Expect(store).NotTo(BeNil())
			})
		})

		Context("when the backend is unsupported", func() {
			It("should return an error", func() {
				cfg := &config.VectorDBConfig{Enabled: true, Backend: "bogus"}
				factory = vector.NewVectorDatabaseFactory(cfg, db, logger)

				_, err := factory.CreateVectorDatabase()

				Expect(err).To(HaveOccurred())
			})
		})

		Context("when the backend is postgres", func() {
			It("should return a not-available error", func() {
				cfg := &config.VectorDBConfig{Enabled: true, Backend: "postgres"}
				factory = vector.NewVectorDatabaseFactory(cfg, db, logger)

				_, err := factory.CreateVectorDatabase()

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("CreateEmbeddingGenerator", func() {
		It("should size the generator from config", func() {
			cfg := &config.VectorDBConfig{EmbeddingService: config.EmbeddingConfig{Dimension: 512}}
			factory = vector.NewVectorDatabaseFactory(cfg, db, logger)

			Expect(factory.CreateEmbeddingGenerator().GetEmbeddingDimension()).To(Equal(512))
		})

		It("should default the dimension when config is nil", func() {
			factory = vector.NewVectorDatabaseFactory(nil, db, logger)

			Expect(factory.CreateEmbeddingGenerator().GetEmbeddingDimension()).To(Equal(384))
		})
	})
})
