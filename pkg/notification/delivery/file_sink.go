package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends each Notification as a JSON line to a single file, a
// development-mode mailbox an operator can tail.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink targets path, creating its parent directory as needed.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create notification file sink directory: %w", err)
		}
	}
	return &FileSink{path: path}, nil
}

var _ Sink = (*FileSink)(nil)

// Deliver appends n to the sink's file, opening it for append-or-create
// on every call so concurrent writers from separate processes interleave
// by line rather than corrupt each other.
func (f *FileSink) Deliver(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notification file sink: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}
