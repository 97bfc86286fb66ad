package registry

import (
	"context"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FileSnapshotter", func() {
	It("round-trips a catalog through a JSON file", func() {
		ctx := context.Background()
		path := filepath.Join(GinkgoT().TempDir(), "nested", "registry.json")
		snap := NewFileSnapshotter(path)

		components := []Component{{ID: "apollo", Type: "Registry"}}
		bindings := []FallbackBinding{{Capability: "summarize", PrimaryID: "apollo", FallbackID: "athena"}}

		Expect(snap.Save(ctx, components, bindings)).To(Succeed())

		gotComponents, gotBindings, err := snap.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotComponents).To(Equal(components))
		Expect(gotBindings).To(Equal(bindings))
	})

	It("returns empty slices, not an error, when no snapshot exists yet", func() {
		snap := NewFileSnapshotter(filepath.Join(GinkgoT().TempDir(), "absent.json"))
		components, bindings, err := snap.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(components).To(BeEmpty())
		Expect(bindings).To(BeEmpty())
	})
})

var _ = Describe("RedisSnapshotter", func() {
	var (
		server *miniredis.Miniredis
		client *redis.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		server, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: server.Addr()})
		ctx = context.Background()
	})

	AfterEach(func() {
		client.Close()
		server.Close()
	})

	It("round-trips a catalog through a single Redis key", func() {
		snap := NewRedisSnapshotter(client, "tekton:registry:test")
		components := []Component{{ID: "athena", Type: "Dependency"}}
		bindings := []FallbackBinding{{Capability: "analyze", PrimaryID: "athena", FallbackID: "apollo"}}

		Expect(snap.Save(ctx, components, bindings)).To(Succeed())

		gotComponents, gotBindings, err := snap.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotComponents).To(Equal(components))
		Expect(gotBindings).To(Equal(bindings))
	})

	It("returns empty slices, not an error, when the key doesn't exist yet", func() {
		snap := NewRedisSnapshotter(client, "tekton:registry:missing")
		components, bindings, err := snap.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(components).To(BeEmpty())
		Expect(bindings).To(BeEmpty())
	})
})
