package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps every snapshot in one JSON file. Each write replaces the
// file atomically.
type FileStore struct {
	FilePath string

	mu sync.Mutex
}

// NewFileStore creates a new JSON file store.
func NewFileStore(path string) *FileStore {
	return &FileStore{FilePath: path}
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all[snap.SessionID] = snap
	return s.write(all)
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := all[sessionID]; !ok {
		return nil
	}
	delete(all, sessionID)
	return s.write(all)
}

// LoadAll implements Store. Snapshots are ordered by session id.
func (s *FileStore) LoadAll(ctx context.Context) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(all))
	for _, snap := range all {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// Close is a no-op for JSON files.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (map[string]Snapshot, error) {
	all := make(map[string]Snapshot)
	if s.FilePath == "" {
		return all, nil
	}

	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil // File doesn't exist yet, that's OK
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode checkpoints: %w", err)
	}
	return all, nil
}

func (s *FileStore) write(all map[string]Snapshot) error {
	if s.FilePath == "" {
		return nil
	}

	dir := filepath.Dir(s.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoints: %w", err)
	}

	tmp := s.FilePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.FilePath); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// Verify FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)
