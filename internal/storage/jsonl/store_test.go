package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/docstore/internal/storage"
	"github.com/maruel/docstore/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	var dir string
	storagetest.Run(t,
		func(t *testing.T) storage.Store {
			dir = t.TempDir()
			s, err := Open(dir)
			if err != nil {
				t.Fatal(err)
			}
			return s
		},
		func(t *testing.T) storage.Store {
			s, err := Open(dir)
			if err != nil {
				t.Fatal(err)
			}
			return s
		})
}

func TestStore_NoCollection(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.All("User"); !errors.Is(err, ErrNoCollection) {
		t.Errorf("All() error = %v, want ErrNoCollection", err)
	}
}

func TestStore_Reload(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []*Store{a, b} {
		if err := s.EnsureCollection("User"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := a.Insert("User", `{"n":1}`); err != nil {
		t.Fatal(err)
	}
	if rows, _ := b.All("User"); len(rows) != 0 {
		t.Fatalf("cache of b saw %d rows before Reload", len(rows))
	}
	if err := b.Reload("User"); err != nil {
		t.Fatal(err)
	}
	if rows, _ := b.All("User"); len(rows) != 1 {
		t.Errorf("All() after Reload = %d rows, want 1", len(rows))
	}
	if err := b.Reload("Post"); !errors.Is(err, ErrNoCollection) {
		t.Errorf("Reload(unknown) = %v, want ErrNoCollection", err)
	}
}

func TestTable_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User"+Extension)
	table, err := NewTable(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("new table has %d lines, want 1", len(lines))
	}
	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatal(err)
	}
	if h.Version != currentVersion || h.NextID != 1 {
		t.Errorf("header = %+v", h)
	}

	if _, err := table.Append(`{"name":"John"}`); err != nil {
		t.Fatal(err)
	}
	lines = readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d lines after append, want 2", len(lines))
	}
	var row storage.Row
	if err := json.Unmarshal([]byte(lines[1]), &row); err != nil {
		t.Fatal(err)
	}
	if row.ID != 1 || row.Data != `{"name":"John"}` {
		t.Errorf("row = %+v", row)
	}
}

func TestTable_DeleteKeepsHighWaterMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User"+Extension)
	table, err := NewTable(path)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if _, err := table.Append(`{}`); err != nil {
			t.Fatal(err)
		}
	}
	if ok, err := table.Delete(3); err != nil || !ok {
		t.Fatalf("Delete(3) = %v, %v", ok, err)
	}
	lines := readLines(t, path)
	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatal(err)
	}
	if h.NextID != 4 {
		t.Errorf("header next_id = %d, want 4", h.NextID)
	}

	reloaded, err := NewTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reloaded.Len())
	}
	id, err := reloaded.Append(`{}`)
	if err != nil {
		t.Fatal(err)
	}
	if id != 4 {
		t.Errorf("Append() id = %d, want 4", id)
	}
}

func TestTable_LoadUnsorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User"+Extension)
	content := `{"version":"1.0","next_id":1}
{"id":5,"data":"{\"n\":5}"}

{"id":2,"data":"{\"n\":2}"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // test file
		t.Fatal(err)
	}
	table, err := NewTable(path)
	if err != nil {
		t.Fatal(err)
	}
	rows := table.All()
	if len(rows) != 2 || rows[0].ID != 2 || rows[1].ID != 5 {
		t.Fatalf("All() = %+v", rows)
	}
	if row, ok := table.Get(5); !ok || row.Data != `{"n":5}` {
		t.Errorf("Get(5) = %+v, %v", row, ok)
	}
	id, err := table.Append(`{}`)
	if err != nil {
		t.Fatal(err)
	}
	if id != 6 {
		t.Errorf("Append() id = %d, want 6", id)
	}
}

func TestTable_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad header", "not json\n"},
		{"missing version", `{"next_id":1}` + "\n"},
		{"bad next_id", `{"version":"1.0","next_id":0}` + "\n"},
		{"bad row", `{"version":"1.0","next_id":1}` + "\n{\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "User"+Extension)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil { //nolint:gosec // test file
				t.Fatal(err)
			}
			if _, err := NewTable(path); err == nil {
				t.Error("NewTable() should fail")
			}
		})
	}
}

func TestTable_EmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "User"+Extension)
	if err := os.WriteFile(path, nil, 0o644); err != nil { //nolint:gosec // test file
		t.Fatal(err)
	}
	if _, err := NewTable(path); err != nil {
		t.Fatal(err)
	}
	if lines := readLines(t, path); len(lines) != 1 {
		t.Errorf("got %d lines, want header only", len(lines))
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // test file
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = f.Close()
	}()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if l := scanner.Text(); l != "" {
			lines = append(lines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}
