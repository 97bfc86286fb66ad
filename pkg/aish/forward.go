package aish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileForwardStore persists the forwarding table to a single JSON file,
// the same atomic temp-file-plus-rename pattern the service registry uses
// for its own snapshots.
type FileForwardStore struct {
	path string
}

// NewFileForwardStore targets the given file path.
func NewFileForwardStore(path string) *FileForwardStore {
	return &FileForwardStore{path: path}
}

// Save writes the forwarding table atomically.
func (s *FileForwardStore) Save(ctx context.Context, forwards map[string]ForwardRule) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create forward store directory: %w", err)
	}

	data, err := json.Marshal(forwards)
	if err != nil {
		return fmt.Errorf("failed to marshal forwarding table: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write forwarding table: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the forwarding table back, returning nil (not an error) if no
// file has been written yet.
func (s *FileForwardStore) Load(ctx context.Context) (map[string]ForwardRule, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read forwarding table: %w", err)
	}

	var forwards map[string]ForwardRule
	if err := json.Unmarshal(data, &forwards); err != nil {
		return nil, fmt.Errorf("failed to parse forwarding table: %w", err)
	}
	return forwards, nil
}
