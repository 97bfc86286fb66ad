package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

type snapshotDocument struct {
	Components []Component       `json:"components"`
	Bindings   []FallbackBinding `json:"bindings"`
}

// FileSnapshotter persists the registry catalog to a single JSON file,
// suitable for a single-instance or development deployment.
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter targets the given file path, creating parent
// directories as needed on Save.
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Save writes the catalog atomically via a temp-file-plus-rename.
func (s *FileSnapshotter) Save(ctx context.Context, components []Component, bindings []FallbackBinding) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.Marshal(snapshotDocument{Components: components, Bindings: bindings})
	if err != nil {
		return fmt.Errorf("failed to marshal registry snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the catalog back, returning empty slices (not an error) if no
// snapshot has been written yet.
func (s *FileSnapshotter) Load(ctx context.Context) ([]Component, []FallbackBinding, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read registry snapshot: %w", err)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse registry snapshot: %w", err)
	}
	return doc.Components, doc.Bindings, nil
}

// RedisSnapshotter persists the registry catalog to a single Redis key,
// used when multiple registry instances share state behind a load balancer.
type RedisSnapshotter struct {
	client *redis.Client
	key    string
}

// NewRedisSnapshotter targets the given Redis key on client.
func NewRedisSnapshotter(client *redis.Client, key string) *RedisSnapshotter {
	return &RedisSnapshotter{client: client, key: key}
}

// Save writes the catalog as a single JSON value.
func (s *RedisSnapshotter) Save(ctx context.Context, components []Component, bindings []FallbackBinding) error {
	data, err := json.Marshal(snapshotDocument{Components: components, Bindings: bindings})
	if err != nil {
		return fmt.Errorf("failed to marshal registry snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Load reads the catalog back, returning empty slices (not an error) if the
// key doesn't exist yet.
func (s *RedisSnapshotter) Load(ctx context.Context) ([]Component, []FallbackBinding, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read registry snapshot: %w", err)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse registry snapshot: %w", err)
	}
	return doc.Components, doc.Bindings, nil
}
