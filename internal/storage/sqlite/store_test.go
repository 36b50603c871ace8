package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/maruel/docstore/internal/storage"
	"github.com/maruel/docstore/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	var path string
	storagetest.Run(t,
		func(t *testing.T) storage.Store {
			path = filepath.Join(t.TempDir(), "test.db")
			s, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() {
				_ = s.Close()
			})
			return s
		},
		func(t *testing.T) storage.Store {
			s, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() {
				_ = s.Close()
			})
			return s
		})
}

func TestStore_Memory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.Close()
	}()
	if _, err := s.Insert("User", "{}"); !errors.Is(err, ErrNoCollection) {
		t.Errorf("Insert() error = %v, want ErrNoCollection", err)
	}
	if err := s.EnsureCollection("User"); err != nil {
		t.Fatal(err)
	}
	id, err := s.Insert("User", `{"name":"John"}`)
	if err != nil {
		t.Fatal(err)
	}
	row, ok, err := s.Get("User", id)
	if err != nil || !ok || row.Data != `{"name":"John"}` {
		t.Errorf("Get() = %+v, %v, %v", row, ok, err)
	}
	if s.Path() != ":memory:" {
		t.Errorf("Path() = %q", s.Path())
	}
}
