// Package snapshot stores collected rider and race snapshots.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wonny/wielermanager/internal/contracts"
)

// FileStore keeps the latest snapshot in one JSON file
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Latest reads the snapshot file
func (s *FileStore) Latest(ctx context.Context) (*contracts.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrNoSnapshot, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return Decode(data)
}

// Save writes the snapshot atomically through a temp file
func (s *FileStore) Save(ctx context.Context, snap *contracts.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Decode parses a snapshot document and fills missing maps
func Decode(data []byte) (*contracts.Snapshot, error) {
	var snap contracts.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i := range snap.Riders {
		if snap.Riders[i].ExpectedValues == nil {
			snap.Riders[i].ExpectedValues = map[string]float64{}
		}
	}
	return &snap, nil
}
