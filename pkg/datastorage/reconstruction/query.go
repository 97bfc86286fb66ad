// Package reconstruction assembles the sunrise "what happened while
// you rested" delta from a durable datastorage.Client, for deployments
// where the Memory Catalog's in-process contextapi.Catalog.ItemsSince
// is not the backing store (the catalog runs in another process, or
// items must survive a restart of the one holding it).
package reconstruction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ckoons/tekton-core/pkg/contextapi"
	"github.com/ckoons/tekton-core/pkg/datastorage"
)

// MemoryItemCollection is the datastorage.Client collection name
// memory items are stored and queried under.
const MemoryItemCollection = "memory-items"

// QueryItemsSince fetches every memory item created at or after since
// from client, decoding each Document's Payload into a
// contextapi.MemoryItem. A decode failure on one document is skipped
// rather than aborting the whole query, since one malformed record
// should not block a CI's sunrise.
func QueryItemsSince(ctx context.Context, client datastorage.Client, since time.Time) ([]*contextapi.MemoryItem, error) {
	if client == nil {
		return nil, fmt.Errorf("datastorage client is nil")
	}

	docs, err := client.ListSince(ctx, MemoryItemCollection, since)
	if err != nil {
		return nil, fmt.Errorf("list memory items since %s: %w", since.Format(time.RFC3339), err)
	}

	items := make([]*contextapi.MemoryItem, 0, len(docs))
	for _, doc := range docs {
		var item contextapi.MemoryItem
		if err := json.Unmarshal(doc.Payload, &item); err != nil {
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// Reconstruct assembles the sunrise delta text for a CI waking up
// after sunsetAt, by querying client for every memory item recorded
// since then and rendering them with contextapi.SunriseDelta.
func Reconstruct(ctx context.Context, client datastorage.Client, sunsetAt time.Time) (string, error) {
	items, err := QueryItemsSince(ctx, client, sunsetAt)
	if err != nil {
		return "", err
	}
	return contextapi.SunriseDelta(items), nil
}
