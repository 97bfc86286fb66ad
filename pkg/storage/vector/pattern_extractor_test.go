package vector_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/storage/vector"
)

var _ = Describe("DefaultExtractor", func() {
	var (
		extractor *vector.DefaultExtractor
		logger    *logrus.Logger
		ctx       context.Context
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		extractor = vector.NewDefaultExtractor(nil, logger)
		ctx = context.Background()
	})

	Describe("NewDefaultExtractor", func() {
		It("should create a new extractor", func() {
			Expect(vector.NewDefaultExtractor(nil, logger)).NotTo(BeNil())
		})
	})

	Describe("ExtractItem", func() {
		Context("without an embedding generator", func() {
			It("should extract a complete item with no embedding", func() {
				trace := testTrace()

				item, err := extractor.ExtractItem(ctx, trace)

				Expect(err).NotTo(HaveOccurred())
				Expect(item).NotTo(BeNil())
				Expect(item.ID).NotTo(BeEmpty())
				Expect(item.Kind).To(Equal("decision"))
				Expect(item.Topic).To(Equal("HighMemoryUsage"))
				Expect(item.Importance).To(Equal("warning"))
				Expect(item.Project).To(Equal("aish"))
				Expect(item.SourceType).To(Equal("execution"))
				Expect(item.SourceID).To(Equal("exec-1"))
				Expect(item.Embedding).To(BeEmpty())
			})
		})

		Context("with an embedding generator", func() {
			It("should generate an embedding from the trace", func() {
				withEmbedder := vector.NewDefaultExtractor(vector.NewLocalEmbeddingService(384, logger), logger)
				trace := testTrace()

				item, err := withEmbedder.ExtractItem(ctx, trace)

				Expect(err).NotTo(HaveOccurred())
				Expect(item.Embedding).To(HaveLen(384))
			})
		})
	})
})

func testTrace() vector.ActivityTrace {
	return vector.ActivityTrace{
		Kind:       "decision",
		Topic:      "HighMemoryUsage",
		Importance: "warning",
		Project:    "aish",
		SourceType: "execution",
		SourceID:   "exec-1",
		Attributes: map[string]interface{}{
			"replicas": 3,
			"reason":   "testing",
		},
		Trigger: map[string]interface{}{
			"threshold": "80%",
		},
		Outcome: map[string]interface{}{
			"status": "completed",
		},
		Tags:       map[string]string{"app": "aish"},
		OccurredAt: time.Now().Add(-time.Hour),
	}
}
