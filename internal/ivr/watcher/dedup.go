package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// processedLog is the on-disk shape of the processed-id log, per spec §6.
type processedLog struct {
	ProcessedFiles []string  `json:"processed_files"`
	LastUpdated    time.Time `json:"last_updated"`
}

// FileDedupStore is a DedupStore backed by a single JSON file, shared
// between the watcher and pipeline workers per spec §5's shared-resource
// policy: mutation is guarded by a mutex, writes are serialised and use
// temp-name-then-rename semantics so a reader never observes a partial file.
type FileDedupStore struct {
	path string

	mu   sync.Mutex
	seen map[string]bool
}

// NewFileDedupStore loads path (if it exists) and returns a ready store. A
// missing file is treated as an empty log, not an error.
func NewFileDedupStore(path string) (*FileDedupStore, error) {
	s := &FileDedupStore{path: path, seen: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("watcher: read processed-id log %s: %w", path, err)
	}

	var log processedLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("watcher: parse processed-id log %s: %w", path, err)
	}
	for _, id := range log.ProcessedFiles {
		s.seen[id] = true
	}
	return s, nil
}

// Seen reports whether id has already been emitted.
func (s *FileDedupStore) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id]
}

// MarkSeen records id as emitted and persists the full log before
// returning, so a crash immediately after MarkSeen never loses the record.
func (s *FileDedupStore) MarkSeen(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[id] {
		return nil
	}
	s.seen[id] = true
	return s.persistLocked()
}

func (s *FileDedupStore) persistLocked() error {
	ids := make([]string, 0, len(s.seen))
	for id := range s.seen {
		ids = append(ids, id)
	}
	log := processedLog{ProcessedFiles: ids, LastUpdated: time.Now().UTC()}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("watcher: marshal processed-id log: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".processed-*.tmp")
	if err != nil {
		return fmt.Errorf("watcher: create temp processed-id log: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("watcher: write temp processed-id log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("watcher: close temp processed-id log: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("watcher: rename processed-id log into place: %w", err)
	}
	return nil
}
