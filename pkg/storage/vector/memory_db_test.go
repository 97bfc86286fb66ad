package vector_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/pkg/storage/vector"
)

func TestVectorSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Vector Catalog Suite")
}

var _ = Describe("MemoryVectorStore", func() {
	var (
		store  *vector.MemoryVectorStore
		logger *logrus.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		store = vector.NewMemoryVectorStore(logger)
		ctx = context.Background()
	})

	Describe("NewMemoryVectorStore", func() {
		It("should create an empty catalog", func() {
			Expect(store).NotTo(BeNil())
			Expect(store.GetItemCount()).To(Equal(0))
		})
	})

	Describe("StoreItem", func() {
		Context("when storing a valid item", func() {
			It("should store the item successfully", func() {
				item := testItem("test-1", "decision", "HighMemoryUsage")

				err := store.StoreItem(ctx, item)

				Expect(err).NotTo(HaveOccurred())
				Expect(store.GetItemCount()).To(Equal(1))
			})

			It("should preserve CreatedAt while bumping UpdatedAt", func() {
				item := testItem("test-2", "procedure", "PodCrashing")
				originalCreatedAt := item.CreatedAt

				Expect(store.StoreItem(ctx, item)).To(Succeed())

				stored, err := store.GetItem("test-2")
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.CreatedAt).To(Equal(originalCreatedAt))
				Expect(stored.UpdatedAt).To(BeTemporally(">=", originalCreatedAt))
			})
		})

		Context("when item ID is empty", func() {
			It("should return an error", func() {
				item := testItem("", "decision", "HighMemoryUsage")

				err := store.StoreItem(ctx, item)

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("pattern ID cannot be empty"))
			})
		})

		Context("when item embedding is empty", func() {
			It("should return an error", func() {
				item := testItem("test-3", "decision", "HighMemoryUsage")
				item.Embedding = []float64{}

				err := store.StoreItem(ctx, item)

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("pattern embedding cannot be empty"))
			})
		})
	})

	Describe("FindSimilarItems", func() {
		BeforeEach(func() {
			items := []*vector.CatalogItem{
				testItemWithEmbedding("item-1", "decision", "HighMemoryUsage", []float64{1.0, 0.5, 0.0}, 0.9),
				testItemWithEmbedding("item-2", "decision", "HighMemoryUsage", []float64{0.9, 0.4, 0.1}, 0.8),
				testItemWithEmbedding("item-3", "procedure", "PodCrashing", []float64{0.1, 0.9, 0.5}, 0.7),
				testItemWithEmbedding("item-4", "decision", "HighCpuUsage", []float64{0.8, 0.6, 0.2}, 0.85),
			}
			for _, item := range items {
				Expect(store.StoreItem(ctx, item)).To(Succeed())
			}
		})

		It("should return similar items ordered by similarity", func() {
			query := testItemWithEmbedding("query", "decision", "HighMemoryUsage", []float64{0.95, 0.45, 0.05}, 0.0)

			results, err := store.FindSimilarItems(ctx, query, 3, 0.5)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically(">=", 2))

			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Similarity).To(BeNumerically(">=", results[i].Similarity))
			}
			for i, result := range results {
				Expect(result.Rank).To(Equal(i + 1))
			}
		})

		It("should respect the similarity threshold", func() {
			query := testItemWithEmbedding("query", "procedure", "PodCrashing", []float64{0.0, 1.0, 0.0}, 0.0)

			results, err := store.FindSimilarItems(ctx, query, 10, 0.9)

			Expect(err).NotTo(HaveOccurred())
			for _, result := range results {
				Expect(result.Similarity).To(BeNumerically(">=", 0.9))
			}
		})

		It("should respect the limit parameter", func() {
			query := testItemWithEmbedding("query", "decision", "HighMemoryUsage", []float64{1.0, 0.5, 0.0}, 0.0)

			results, err := store.FindSimilarItems(ctx, query, 2, 0.0)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically("<=", 2))
		})

		It("should exclude the query item itself from the results", func() {
			query := testItemWithEmbedding("same-item", "decision", "HighMemoryUsage", []float64{1.0, 0.5, 0.0}, 0.9)
			Expect(store.StoreItem(ctx, query)).To(Succeed())

			results, err := store.FindSimilarItems(ctx, query, 10, 0.0)

			Expect(err).NotTo(HaveOccurred())
			for _, result := range results {
				Expect(result.Item.ID).NotTo(Equal("same-item"))
			}
		})

		Context("when the query embedding is empty", func() {
			It("should return an error", func() {
				query := testItem("query", "decision", "HighMemoryUsage")
				query.Embedding = []float64{}

				_, err := store.FindSimilarItems(ctx, query, 5, 0.5)

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("query pattern embedding cannot be empty"))
			})
		})
	})

	Describe("UpdateRecallScore", func() {
		BeforeEach(func() {
			Expect(store.StoreItem(ctx, testItem("update-test", "decision", "HighMemoryUsage"))).To(Succeed())
		})

		It("should update the recall score", func() {
			err := store.UpdateRecallScore(ctx, "update-test", 0.95)

			Expect(err).NotTo(HaveOccurred())

			item, err := store.GetItem("update-test")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.RecallStats.Score).To(Equal(0.95))
			Expect(item.RecallStats.LastAssessed).To(BeTemporally("~", time.Now(), time.Second))
		})

		It("should create recall stats if absent", func() {
			item := testItem("no-stats", "procedure", "PodCrashing")
			item.RecallStats = nil
			Expect(store.StoreItem(ctx, item)).To(Succeed())

			Expect(store.UpdateRecallScore(ctx, "no-stats", 0.75)).To(Succeed())

			updated, err := store.GetItem("no-stats")
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.RecallStats).NotTo(BeNil())
			Expect(updated.RecallStats.Score).To(Equal(0.75))
		})

		It("should error for an unknown item", func() {
			err := store.UpdateRecallScore(ctx, "non-existent", 0.8)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("pattern with ID non-existent not found"))
		})
	})

	Describe("SearchBySemantics", func() {
		BeforeEach(func() {
			items := []*vector.CatalogItem{
				testItem("memory-1", "decision", "HighMemoryUsage"),
				testItem("memory-2", "decision", "MemoryPressure"),
				testItem("cpu-1", "decision", "HighCpuUsage"),
				testItem("pod-1", "procedure", "PodCrashing"),
				testItem("network-1", "procedure", "NetworkIssue"),
			}
			for _, item := range items {
				item.SourceType = "conversation"
				if item.Kind == "procedure" {
					item.SourceType = "document"
				}
				Expect(store.StoreItem(ctx, item)).To(Succeed())
			}
		})

		It("should find memory-related items", func() {
			results, err := store.SearchBySemantics(ctx, "memory", 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically(">=", 2))

			found := false
			for _, item := range results {
				if item.Topic == "HighMemoryUsage" || item.Topic == "MemoryPressure" {
					found = true
					break
				}
			}
			Expect(found).To(BeTrue())
		})

		It("should sort results by recall score descending", func() {
			results, err := store.SearchBySemantics(ctx, "decision", 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically(">=", 1))

			if len(results) > 1 {
				for i := 1; i < len(results); i++ {
					prev, curr := 0.0, 0.0
					if results[i-1].RecallStats != nil {
						prev = results[i-1].RecallStats.Score
					}
					if results[i].RecallStats != nil {
						curr = results[i].RecallStats.Score
					}
					Expect(prev).To(BeNumerically(">=", curr))
				}
			}
		})

		It("should respect the limit parameter", func() {
			results, err := store.SearchBySemantics(ctx, "decision", 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically("<=", 2))
		})

		It("should return no results when nothing matches", func() {
			results, err := store.SearchBySemantics(ctx, "nonexistent", 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("DeleteItem", func() {
		BeforeEach(func() {
			Expect(store.StoreItem(ctx, testItem("delete-test", "decision", "HighMemoryUsage"))).To(Succeed())
		})

		It("should remove the item", func() {
			Expect(store.DeleteItem(ctx, "delete-test")).To(Succeed())
			Expect(store.GetItemCount()).To(Equal(0))

			_, err := store.GetItem("delete-test")
			Expect(err).To(HaveOccurred())
		})

		It("should error for an unknown item", func() {
			err := store.DeleteItem(ctx, "non-existent")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("pattern with ID non-existent not found"))
		})
	})

	Describe("GetCatalogAnalytics", func() {
		BeforeEach(func() {
			items := []*vector.CatalogItem{
				testItemWithEmbedding("analytics-1", "decision", "critical", []float64{1.0, 0.0, 0.0}, 0.9),
				testItemWithEmbedding("analytics-2", "decision", "warning", []float64{0.0, 1.0, 0.0}, 0.8),
				testItemWithEmbedding("analytics-3", "procedure", "critical", []float64{0.0, 0.0, 1.0}, 0.7),
				testItemWithEmbedding("analytics-4", "fact", "warning", []float64{0.5, 0.5, 0.0}, 0.6),
				testItemWithEmbedding("analytics-5", "decision", "critical", []float64{0.3, 0.3, 0.4}, 0.95),
			}
			for _, item := range items {
				item.Importance = item.Topic
				Expect(store.StoreItem(ctx, item)).To(Succeed())
			}
		})

		It("should return comprehensive analytics", func() {
			analytics, err := store.GetCatalogAnalytics(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(analytics).NotTo(BeNil())
			Expect(analytics.TotalItems).To(Equal(5))
			Expect(analytics.ItemsByKind).To(HaveKey("decision"))
			Expect(analytics.ItemsByKind).To(HaveKey("procedure"))
			Expect(analytics.ItemsByKind).To(HaveKey("fact"))
			Expect(analytics.ItemsByImportance).To(HaveKey("critical"))
			Expect(analytics.ItemsByImportance).To(HaveKey("warning"))
		})

		It("should calculate correct averages", func() {
			analytics, err := store.GetCatalogAnalytics(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(analytics.AverageRecallScore).To(BeNumerically("~", 0.79, 0.01))
		})

		It("should categorize recall scores properly", func() {
			analytics, err := store.GetCatalogAnalytics(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(analytics.RecallScoreDistribution).To(HaveKey("excellent"))
			Expect(analytics.RecallScoreDistribution).To(HaveKey("very_good"))
			Expect(analytics.RecallScoreDistribution).To(HaveKey("good"))
			Expect(analytics.RecallScoreDistribution).To(HaveKey("fair"))
		})

		It("should return top performing items with the highest scorer first", func() {
			analytics, err := store.GetCatalogAnalytics(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(analytics.TopPerformingItems)).To(BeNumerically(">=", 1))
			Expect(analytics.TopPerformingItems[0].RecallStats.Score).To(Equal(0.95))
		})

		It("should return recent items ordered by creation time descending", func() {
			analytics, err := store.GetCatalogAnalytics(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(len(analytics.RecentItems)).To(BeNumerically(">=", 1))

			if len(analytics.RecentItems) > 1 {
				for i := 1; i < len(analytics.RecentItems); i++ {
					prev := analytics.RecentItems[i-1].CreatedAt
					curr := analytics.RecentItems[i].CreatedAt
					Expect(prev.After(curr) || prev.Equal(curr)).To(BeTrue())
				}
			}
		})
	})

	Describe("IsHealthy", func() {
		It("should report healthy", func() {
			Expect(store.IsHealthy(ctx)).To(Succeed())
		})
	})

	Describe("Clear", func() {
		BeforeEach(func() {
			items := []*vector.CatalogItem{
				testItem("clear-1", "decision", "HighMemoryUsage"),
				testItem("clear-2", "procedure", "PodCrashing"),
			}
			for _, item := range items {
				Expect(store.StoreItem(ctx, item)).To(Succeed())
			}
		})

		It("should remove every item", func() {
			Expect(store.GetItemCount()).To(Equal(2))

			store.Clear()

			Expect(store.GetItemCount()).To(Equal(0))
		})
	})

	Describe("Concurrent Access", func() {
		It("should handle concurrent reads and writes safely", func() {
			done := make(chan bool, 3)

			go func() {
				defer GinkgoRecover()
				for i := 0; i < 10; i++ {
					item := testItem(fmt.Sprintf("concurrent-write-%d", i), "decision", "HighMemoryUsage")
					Expect(store.StoreItem(ctx, item)).To(Succeed())
				}
				done <- true
			}()

			go func() {
				defer GinkgoRecover()
				for i := 0; i < 10; i++ {
					_ = store.GetItemCount()
					_, _ = store.GetCatalogAnalytics(ctx)
				}
				done <- true
			}()

			go func() {
				defer GinkgoRecover()
				query := testItem("concurrent-query", "decision", "HighMemoryUsage")
				for i := 0; i < 10; i++ {
					_, _ = store.FindSimilarItems(ctx, query, 5, 0.3)
				}
				done <- true
			}()

			<-done
			<-done
			<-done

			Expect(store.GetItemCount()).To(BeNumerically(">", 0))
		})
	})
})

func testItem(id, kind, topic string) *vector.CatalogItem {
	return &vector.CatalogItem{
		ID:         id,
		Kind:       kind,
		Topic:      topic,
		Importance: "warning",
		Project:    "test-project",
		SourceType: "conversation",
		SourceID:   "test-source",
		Attributes: map[string]interface{}{
			"weight": 3,
			"reason": "testing",
		},
		Tags: map[string]string{
			"app":     "test-app",
			"version": "1.0.0",
		},
		TriggerContext: map[string]interface{}{
			"alert_severity": "warning",
		},
		Outcome: map[string]interface{}{
			"execution_status": "completed",
		},
		RecallStats: &vector.RecallStats{
			Score:                0.8,
			RecallCount:          1,
			StaleCount:           0,
			AverageRecallLatency: 30 * time.Second,
			ConflictCount:        0,
			RecurrenceRate:       0.0,
			ContextualFactors: map[string]float64{
				"hour_of_day": 0.5,
				"day_of_week": 0.3,
			},
			LastAssessed: time.Now(),
		},
		Embedding: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
		Metadata: map[string]interface{}{
			"test": true,
		},
	}
}

func testItemWithEmbedding(id, kind, topic string, embedding []float64, score float64) *vector.CatalogItem {
	item := testItem(id, kind, topic)
	item.Embedding = embedding
	item.RecallStats.Score = score
	return item
}
