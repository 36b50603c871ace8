// Package jsonl implements storage.Store on top of JSON Lines files.
//
// # Overview
//
// Each collection is one file, <dir>/<name>.jsonl, fully cached in memory.
// Reads never touch the disk. Inserts append a single line; updates and
// deletes rewrite the file through a temporary file and a rename.
//
// # File Format
//
// Line 1 is a header holding the format version and the next id to assign.
// Every following line is a row: {"id":1,"data":"{\"name\":\"John\"}"}.
// Rows are sorted by id on load if out of order.
//
// # Concurrency
//
// A Table is safe for concurrent use within one process. Nothing coordinates
// two processes writing the same directory.
package jsonl

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/docstore/internal/storage"
)

// Extension is the file extension of collection files.
const Extension = ".jsonl"

// ErrNoCollection is returned for operations on a collection that was never
// ensured.
var ErrNoCollection = errors.New("collection does not exist")

// Store is a directory of JSONL tables.
type Store struct {
	dir string

	mu     sync.Mutex
	tables map[string]*Table
}

var _ storage.Store = (*Store)(nil)

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir, tables: make(map[string]*Table)}, nil
}

// Path returns the file backing the named collection.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Extension)
}

// EnsureCollection implements storage.Store.
func (s *Store) EnsureCollection(name string) error {
	if err := storage.ValidateCollectionName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil
	}
	t, err := NewTable(s.Path(name))
	if err != nil {
		return err
	}
	s.tables[name] = t
	slog.Debug("jsonl: collection ready", "collection", name, "rows", t.Len())
	return nil
}

// Reload discards the cached copy of an ensured collection and reads it back
// from disk, picking up writes made by another process.
func (s *Store) Reload(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	t, err := NewTable(s.Path(name))
	if err != nil {
		return err
	}
	s.tables[name] = t
	return nil
}

func (s *Store) table(name string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	return t, nil
}

// Insert implements storage.Store.
func (s *Store) Insert(name, data string) (int64, error) {
	t, err := s.table(name)
	if err != nil {
		return 0, err
	}
	return t.Append(data)
}

// All implements storage.Store.
func (s *Store) All(name string) ([]storage.Row, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return t.All(), nil
}

// Get implements storage.Store.
func (s *Store) Get(name string, id int64) (storage.Row, bool, error) {
	t, err := s.table(name)
	if err != nil {
		return storage.Row{}, false, err
	}
	row, ok := t.Get(id)
	return row, ok, nil
}

// Put implements storage.Store.
func (s *Store) Put(name string, id int64, data string) (bool, error) {
	t, err := s.table(name)
	if err != nil {
		return false, err
	}
	return t.Update(id, data)
}

// Remove implements storage.Store.
func (s *Store) Remove(name string, id int64) (bool, error) {
	t, err := s.table(name)
	if err != nil {
		return false, err
	}
	return t.Delete(id)
}

// Close implements storage.Store. Every write is already on disk, so it only
// drops the cache.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*Table)
	return nil
}
