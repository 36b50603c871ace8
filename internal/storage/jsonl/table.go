package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/maruel/docstore/internal/storage"
)

// currentVersion is the current version of the JSONL table format.
const currentVersion = "1.0"

// header is the first line of a table file.
type header struct {
	Version string `json:"version"`
	// NextID is a high-water mark so ids are not reused after the highest row
	// is deleted. Appends do not rewrite the header; load takes the max of
	// NextID and the highest row id plus one.
	NextID int64 `json:"next_id"`
}

// Validate checks that the header is well-formed.
func (h *header) Validate() error {
	if h.Version == "" {
		return fmt.Errorf("table version is required")
	}
	if h.NextID < 1 {
		return fmt.Errorf("invalid next_id %d", h.NextID)
	}
	return nil
}

// Table handles storage and in-memory caching for a single collection in
// JSONL format.
type Table struct {
	path string
	mu   sync.RWMutex

	nextID int64
	rows   []storage.Row
}

// NewTable creates a new Table and loads all data from the file. A missing
// file is created with an empty header.
func NewTable(path string) (*Table, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	table := &Table{
		path:   path,
		nextID: 1,
	}

	if err := table.load(); err != nil {
		return nil, err
	}

	return table, nil
}

func (t *Table) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []storage.Row{}
			return t.rewrite(t.rows, t.nextID)
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []storage.Row
	var h *header
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if h == nil {
			h = &header{}
			if err := json.Unmarshal(line, h); err != nil {
				return fmt.Errorf("failed to unmarshal header in %s: %w", t.path, err)
			}
			if err := h.Validate(); err != nil {
				return fmt.Errorf("invalid header in %s: %w", t.path, err)
			}
			continue
		}
		var row storage.Row
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	// Rows are appended in id order; sort anyway to survive manual edits.
	slices.SortStableFunc(rows, func(a, b storage.Row) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	if h != nil {
		t.nextID = h.NextID
	}
	if n := len(rows); n != 0 && rows[n-1].ID >= t.nextID {
		t.nextID = rows[n-1].ID + 1
	}
	if rows == nil {
		rows = []storage.Row{}
	}
	t.rows = rows
	if h == nil {
		// Empty file: write the header so the next append has one.
		return t.rewrite(t.rows, t.nextID)
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// All returns a copy of all rows in ascending id order.
func (t *Table) All() []storage.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.rows)
}

// Get returns the row with the given id.
func (t *Table) Get(id int64) (storage.Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.find(id)
	if !ok {
		return storage.Row{}, false
	}
	return t.rows[i], true
}

// Append stores data in a new row and persists it. It returns the new id.
func (t *Table) Append(data string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := storage.Row{ID: t.nextID, Data: data}
	line, err := json.Marshal(row)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal row: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: table files are not secret
	if err != nil {
		return 0, fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return 0, fmt.Errorf("failed to write row: %w", err)
	}

	t.rows = append(t.rows, row)
	t.nextID++
	return row.ID, nil
}

// Update replaces the data of an existing row and persists the table.
func (t *Table) Update(id int64, data string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.find(id)
	if !ok {
		return false, nil
	}
	rows := slices.Clone(t.rows)
	rows[i].Data = data
	if err := t.rewrite(rows, t.nextID); err != nil {
		return false, err
	}
	t.rows = rows
	return true, nil
}

// Delete removes a row and persists the table.
func (t *Table) Delete(id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.find(id)
	if !ok {
		return false, nil
	}
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.rewrite(rows, t.nextID); err != nil {
		return false, err
	}
	t.rows = rows
	return true, nil
}

// find returns the index of id. Must be called with mu held.
func (t *Table) find(id int64) (int, bool) {
	return slices.BinarySearchFunc(t.rows, id, func(r storage.Row, id int64) int {
		switch {
		case r.ID < id:
			return -1
		case r.ID > id:
			return 1
		}
		return 0
	})
}

// rewrite atomically replaces the file with the header and rows. Must be
// called with mu held.
func (t *Table) rewrite(rows []storage.Row, nextID int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	writer := bufio.NewWriter(tmp)
	h, err := json.Marshal(header{Version: currentVersion, NextID: nextID})
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if _, err := writer.Write(append(h, '\n')); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil { //nolint:gosec // G302: table files are not secret
		return fmt.Errorf("failed to chmod table file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
