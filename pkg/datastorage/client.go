// Package datastorage defines the opaque document/KV backend contract
// ("Hermes database service" / "Engram memory store" in deployment
// terms) shared by every component that needs storage durable across
// process restarts: the context core's sunrise reconstruction, the
// landmark audit trail, and the registry's durable-KV store all depend
// on Client rather than a concrete backend.
//
// pkg/datastorage/client implements Client over HTTP against a remote
// datastorage service; pkg/datastorage/repository/workflow implements
// the same storage need directly against Postgres for components that
// run in-process with their database.
package datastorage

import (
	"context"
	"encoding/json"
	"time"
)

// Document is one opaque record in a named collection. Payload is
// caller-defined; Client implementations never interpret it.
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	CreatedAt  time.Time       `json:"created_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Client is the storage contract the Context/Memory Core, the audit
// trail, and the registry's durable-KV store depend on.
type Client interface {
	// Put writes doc, creating or replacing the document at
	// (doc.Collection, doc.ID).
	Put(ctx context.Context, doc Document) error

	// Get fetches the document at (collection, id). A missing document
	// returns (nil, nil), not an error.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// ListSince returns every document in collection created at or
	// after since, ordered oldest first.
	ListSince(ctx context.Context, collection string, since time.Time) ([]Document, error)
}
