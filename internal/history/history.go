package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MaxEntries caps the number of plan hashes kept on disk. When the cap is
// exceeded the oldest entries are pruned first.
const MaxEntries = 1000

// Store is the durable set of previously executed plan hashes. It is backed
// by a single JSON file (an array of lowercase hex sha256 strings) that is
// loaded once at Open and rewritten on every insert.
//
// The store assumes single-process ownership of the backing file. Writes are
// atomic (temp file + rename) so a crash never leaves a half-written file,
// but two processes sharing one file can still lose each other's inserts.
type Store struct {
	mu     sync.Mutex
	path   string
	hashes []string // insertion order, oldest first
	index  map[string]struct{}
}

// Open loads the hash set from path, creating an empty store when the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		index: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan history: %w", err)
	}

	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		// A corrupt history file only weakens duplicate detection; start
		// fresh rather than refusing to run.
		return s, nil
	}
	for _, h := range hashes {
		if _, ok := s.index[h]; ok {
			continue
		}
		s.hashes = append(s.hashes, h)
		s.index[h] = struct{}{}
	}
	return s, nil
}

// Has reports whether hash was recorded before.
func (s *Store) Has(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[hash]
	return ok
}

// Add records hash and flushes the set to disk. Re-adding a known hash is a
// no-op and does not touch the file.
func (s *Store) Add(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[hash]; ok {
		return nil
	}
	s.hashes = append(s.hashes, hash)
	s.index[hash] = struct{}{}

	if len(s.hashes) > MaxEntries {
		drop := len(s.hashes) - MaxEntries
		for _, old := range s.hashes[:drop] {
			delete(s.index, old)
		}
		s.hashes = append([]string(nil), s.hashes[drop:]...)
	}

	return s.flushLocked()
}

// Len returns the number of stored hashes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// Close flushes any pending state. Add already flushes on every insert, so
// this exists to give callers an explicit end of lifecycle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	data, err := json.Marshal(s.hashes)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan history: %w", err)
	}
	return os.Rename(tmp, s.path)
}
