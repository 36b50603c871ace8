// Package storagetest checks that a storage.Store honors the adapter contract.
package storagetest

import (
	"testing"

	"github.com/maruel/docstore/internal/storage"
)

// Run exercises a Store. newStore must return an empty store; reopen must
// return a new Store over the same underlying data after the previous one was
// closed, or be nil if the store is not persistent.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store, reopen func(t *testing.T) storage.Store) {
	t.Run("EnsureCollection", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"", "1users", "users;drop", "a-b", "a b"} {
			if err := s.EnsureCollection(name); err == nil {
				t.Errorf("EnsureCollection(%q) should fail", name)
			}
		}
		if err := s.EnsureCollection("User"); err != nil {
			t.Fatalf("EnsureCollection failed: %v", err)
		}
		if _, err := s.Insert("User", `{"name":"John"}`); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := s.EnsureCollection("User"); err != nil {
			t.Fatalf("second EnsureCollection failed: %v", err)
		}
		rows, err := s.All("User")
		if err != nil || len(rows) != 1 {
			t.Errorf("All() after second EnsureCollection = %v, %v; want 1 row", rows, err)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Insert("Missing", "{}"); err == nil {
			t.Error("Insert on unknown collection should fail")
		}
		if _, err := s.All("Missing"); err == nil {
			t.Error("All on unknown collection should fail")
		}
		if _, _, err := s.Get("Missing", 1); err == nil {
			t.Error("Get on unknown collection should fail")
		}
		if _, err := s.Put("Missing", 1, "{}"); err == nil {
			t.Error("Put on unknown collection should fail")
		}
		if _, err := s.Remove("Missing", 1); err == nil {
			t.Error("Remove on unknown collection should fail")
		}
	})

	t.Run("CRUD", func(t *testing.T) {
		s := newStore(t)
		mustEnsure(t, s, "User")
		mustEnsure(t, s, "Post")

		id1 := mustInsert(t, s, "User", `{"n":1}`)
		id2 := mustInsert(t, s, "User", `{"n":2}`)
		id3 := mustInsert(t, s, "User", `{"n":3}`)
		if !(id1 < id2 && id2 < id3) {
			t.Fatalf("ids not increasing: %d %d %d", id1, id2, id3)
		}
		postID := mustInsert(t, s, "Post", `{"title":"x"}`)

		row, ok, err := s.Get("User", id2)
		if err != nil || !ok || row.ID != id2 || row.Data != `{"n":2}` {
			t.Errorf("Get(%d) = %+v, %v, %v", id2, row, ok, err)
		}
		if _, ok, err := s.Get("User", id3+100); err != nil || ok {
			t.Errorf("Get(absent) = %v, %v; want false, nil", ok, err)
		}

		if ok, err := s.Put("User", id2, `{"n":22}`); err != nil || !ok {
			t.Fatalf("Put = %v, %v", ok, err)
		}
		if ok, err := s.Put("User", id3+100, `{}`); err != nil || ok {
			t.Errorf("Put(absent) = %v, %v; want false, nil", ok, err)
		}
		if ok, err := s.Remove("User", id1); err != nil || !ok {
			t.Fatalf("Remove = %v, %v", ok, err)
		}
		if ok, err := s.Remove("User", id1); err != nil || ok {
			t.Errorf("second Remove = %v, %v; want false, nil", ok, err)
		}

		rows, err := s.All("User")
		if err != nil {
			t.Fatal(err)
		}
		want := []storage.Row{{ID: id2, Data: `{"n":22}`}, {ID: id3, Data: `{"n":3}`}}
		if len(rows) != len(want) {
			t.Fatalf("All() = %+v, want %+v", rows, want)
		}
		for i := range want {
			if rows[i] != want[i] {
				t.Errorf("All()[%d] = %+v, want %+v", i, rows[i], want[i])
			}
		}
		posts, err := s.All("Post")
		if err != nil || len(posts) != 1 || posts[0].ID != postID {
			t.Errorf("Post collection affected: %+v, %v", posts, err)
		}
	})

	t.Run("ids are not reused", func(t *testing.T) {
		s := newStore(t)
		mustEnsure(t, s, "User")
		mustInsert(t, s, "User", `{}`)
		last := mustInsert(t, s, "User", `{}`)
		if ok, err := s.Remove("User", last); err != nil || !ok {
			t.Fatalf("Remove = %v, %v", ok, err)
		}
		if next := mustInsert(t, s, "User", `{}`); next <= last {
			t.Errorf("id %d reused after deleting %d", next, last)
		}
	})

	if reopen == nil {
		return
	}
	t.Run("persistence", func(t *testing.T) {
		s := newStore(t)
		mustEnsure(t, s, "User")
		mustInsert(t, s, "User", `{"n":1}`)
		last := mustInsert(t, s, "User", `{"n":2}`)
		if _, err := s.Remove("User", last); err != nil {
			t.Fatal(err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		s2 := reopen(t)
		mustEnsure(t, s2, "User")
		rows, err := s2.All("User")
		if err != nil || len(rows) != 1 || rows[0].Data != `{"n":1}` {
			t.Fatalf("All() after reopen = %+v, %v", rows, err)
		}
		if next := mustInsert(t, s2, "User", `{}`); next <= last {
			t.Errorf("id %d reused after reopen, last deleted was %d", next, last)
		}
	})
}

func mustEnsure(t *testing.T, s storage.Store, name string) {
	t.Helper()
	if err := s.EnsureCollection(name); err != nil {
		t.Fatalf("EnsureCollection(%q) failed: %v", name, err)
	}
}

func mustInsert(t *testing.T, s storage.Store, name, data string) int64 {
	t.Helper()
	id, err := s.Insert(name, data)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return id
}
