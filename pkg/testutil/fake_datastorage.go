package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ckoons/tekton-core/pkg/datastorage"
)

// FakeDatastorageClient is an in-memory datastorage.Client for suites
// that need a durable-KV backend without standing up Postgres or the
// HTTP client.
type FakeDatastorageClient struct {
	mu   sync.Mutex
	docs map[string]map[string]datastorage.Document
}

// NewFakeDatastorageClient builds an empty FakeDatastorageClient.
func NewFakeDatastorageClient() *FakeDatastorageClient {
	return &FakeDatastorageClient{docs: make(map[string]map[string]datastorage.Document)}
}

var _ datastorage.Client = (*FakeDatastorageClient)(nil)

// Put stores doc under its collection and ID, overwriting any existing
// document with the same ID.
func (c *FakeDatastorageClient) Put(ctx context.Context, doc datastorage.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs[doc.Collection] == nil {
		c.docs[doc.Collection] = make(map[string]datastorage.Document)
	}
	c.docs[doc.Collection][doc.ID] = doc
	return nil
}

// Get returns the document with the given collection and ID, or nil if
// it doesn't exist.
func (c *FakeDatastorageClient) Get(ctx context.Context, collection, id string) (*datastorage.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[collection][id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// ListSince returns every document in collection created at or after
// since, ordered by CreatedAt.
func (c *FakeDatastorageClient) ListSince(ctx context.Context, collection string, since time.Time) ([]datastorage.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []datastorage.Document
	for _, doc := range c.docs[collection] {
		if !doc.CreatedAt.Before(since) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
