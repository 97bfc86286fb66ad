package vector_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/storage/vector"
)

var _ = Describe("LocalEmbeddingService", func() {
	var (
		service *vector.LocalEmbeddingService
		logger  *logrus.Logger
		ctx     context.Context
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		ctx = context.Background()
	})

	Describe("NewLocalEmbeddingService", func() {
		It("should create a service with the specified dimension", func() {
			service = vector.NewLocalEmbeddingService(512, logger)
			Expect(service).NotTo(BeNil())
			Expect(service.GetEmbeddingDimension()).To(Equal(512))
		})

		It("should default a zero dimension to 384", func() {
			service = vector.NewLocalEmbeddingService(0, logger)
			Expect(service.GetEmbeddingDimension()).To(Equal(384))
		})

		It("should default a negative dimension to 384", func() {
			service = vector.NewLocalEmbeddingService(-100, logger)
			Expect(service.GetEmbeddingDimension()).To(Equal(384))
		})

		It("should tolerate a nil logger", func() {
			service = vector.NewLocalEmbeddingService(384, nil)
			Expect(service).NotTo(BeNil())
		})
	})

	Describe("GenerateTextEmbedding", func() {
		BeforeEach(func() {
			service = vector.NewLocalEmbeddingService(384, logger)
		})

		It("should generate a normalized embedding", func() {
			embedding, err := service.GenerateTextEmbedding(ctx, "context budget sunset threshold")

			Expect(err).NotTo(HaveOccurred())
			Expect(embedding).To(HaveLen(384))

			var sumSquares float64
			for _, v := range embedding {
				sumSquares += v * v
			}
			Expect(sumSquares).To(BeNumerically("~", 1.0, 0.01))
		})

		It("should generate different embeddings for different text", func() {
			e1, err1 := service.GenerateTextEmbedding(ctx, "memory catalog recall")
			e2, err2 := service.GenerateTextEmbedding(ctx, "workflow checkpoint restore")

			Expect(err1).NotTo(HaveOccurred())
			Expect(err2).NotTo(HaveOccurred())
			Expect(e1).NotTo(Equal(e2))
		})

		It("should generate the same embedding for the same text", func() {
			text := "sprint ready stage advance"

			e1, err1 := service.GenerateTextEmbedding(ctx, text)
			e2, err2 := service.GenerateTextEmbedding(ctx, text)

			Expect(err1).NotTo(HaveOccurred())
			Expect(err2).NotTo(HaveOccurred())
			Expect(e1).To(Equal(e2))
		})

		It("should return the zero embedding for empty text", func() {
			embedding, err := service.GenerateTextEmbedding(ctx, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(embedding).To(HaveLen(384))
			for _, v := range embedding {
				Expect(v).To(Equal(0.0))
			}
		})

		It("should handle special characters gracefully", func() {
			for _, text := range []string{"task-id_123", "component/action:8080", "ci@critical.level", "budget>80%<95%"} {
				embedding, err := service.GenerateTextEmbedding(ctx, text)
				Expect(err).NotTo(HaveOccurred())
				Expect(embedding).To(HaveLen(384))
			}
		})

		It("should handle long text efficiently", func() {
			longText := strings.Repeat("workflow execution checkpoint task retry dispatch component ", 100)

			embedding, err := service.GenerateTextEmbedding(ctx, longText)

			Expect(err).NotTo(HaveOccurred())
			Expect(embedding).To(HaveLen(384))
		})
	})

	Describe("GenerateActionEmbedding", func() {
		BeforeEach(func() {
			service = vector.NewLocalEmbeddingService(384, logger)
		})

		It("should produce a normalized embedding that folds in attributes", func() {
			attributes := map[string]interface{}{
				"replicas": 5,
				"target":   "web-service",
				"reason":   "high load",
				"enabled":  true,
				"ratio":    0.75,
			}

			embedding, err := service.GenerateActionEmbedding(ctx, "scale_component", attributes)

			Expect(err).NotTo(HaveOccurred())
			Expect(embedding).To(HaveLen(384))

			var sumSquares float64
			for _, v := range embedding {
				sumSquares += v * v
			}
			Expect(sumSquares).To(BeNumerically("~", 1.0, 0.01))
		})
	})
})
