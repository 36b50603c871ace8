// Package sqlite implements storage.Store on an SQLite database.
//
// Every collection is a table created on first use:
//
//	CREATE TABLE IF NOT EXISTS "<name>" (
//	  id   INTEGER PRIMARY KEY AUTOINCREMENT,
//	  data TEXT NOT NULL
//	)
//
// AUTOINCREMENT guarantees ids are never reused after deletion. Statements are
// prepared once per collection and reused. The driver is modernc.org/sqlite,
// a pure Go port that does not need cgo.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite" // Registers the "sqlite" driver.

	"github.com/maruel/docstore/internal/storage"
)

// ErrNoCollection is returned for operations on a collection that was never
// ensured.
var ErrNoCollection = errors.New("collection does not exist")

// Store is an SQLite database holding one table per collection.
type Store struct {
	db   *sql.DB
	path string

	mu    sync.Mutex
	stmts map[string]*statements
}

var _ storage.Store = (*Store)(nil)

// statements are the prepared statements of one collection.
type statements struct {
	insert *sql.Stmt
	all    *sql.Stmt
	get    *sql.Stmt
	put    *sql.Stmt
	remove *sql.Stmt
}

func (s *statements) close() error {
	var errs []error
	for _, st := range []*sql.Stmt{s.insert, s.all, s.get, s.put, s.remove} {
		if st != nil {
			errs = append(errs, st.Close())
		}
	}
	return errors.Join(errs...)
}

// Open opens or creates the database at path. Use ":memory:" for a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One shared handle: writes are serialized by the connection and an
	// in-memory database stays alive for the Store's lifetime.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", path, err)
	}
	return &Store{db: db, path: path, stmts: make(map[string]*statements)}, nil
}

// Path returns the database path given to Open.
func (s *Store) Path() string {
	return s.path
}

// EnsureCollection implements storage.Store.
func (s *Store) EnsureCollection(name string) error {
	if err := storage.ValidateCollectionName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stmts[name]; ok {
		return nil
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  data TEXT NOT NULL
)`, name)
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	st := &statements{}
	queries := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&st.insert, `INSERT INTO %q (data) VALUES (?)`},
		{&st.all, `SELECT id, data FROM %q ORDER BY id`},
		{&st.get, `SELECT id, data FROM %q WHERE id = ?`},
		{&st.put, `UPDATE %q SET data = ? WHERE id = ?`},
		{&st.remove, `DELETE FROM %q WHERE id = ?`},
	}
	for _, q := range queries {
		stmt, err := s.db.Prepare(fmt.Sprintf(q.query, name))
		if err != nil {
			_ = st.close()
			return fmt.Errorf("failed to prepare statement for %s: %w", name, err)
		}
		*q.dst = stmt
	}
	s.stmts[name] = st
	slog.Debug("sqlite: collection ready", "collection", name)
	return nil
}

func (s *Store) collection(name string) (*statements, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stmts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	return st, nil
}

// Insert implements storage.Store.
func (s *Store) Insert(name, data string) (int64, error) {
	st, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	res, err := st.insert.Exec(data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id in %s: %w", name, err)
	}
	return id, nil
}

// All implements storage.Store.
func (s *Store) All(name string) ([]storage.Row, error) {
	st, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	rows, err := st.all.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	out := []storage.Row{}
	for rows.Next() {
		var r storage.Row
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, fmt.Errorf("failed to scan row in %s: %w", name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows in %s: %w", name, err)
	}
	return out, nil
}

// Get implements storage.Store.
func (s *Store) Get(name string, id int64) (storage.Row, bool, error) {
	st, err := s.collection(name)
	if err != nil {
		return storage.Row{}, false, err
	}
	var r storage.Row
	if err := st.get.QueryRow(id).Scan(&r.ID, &r.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Row{}, false, nil
		}
		return storage.Row{}, false, fmt.Errorf("failed to get row %d in %s: %w", id, name, err)
	}
	return r, true, nil
}

// Put implements storage.Store.
func (s *Store) Put(name string, id int64, data string) (bool, error) {
	st, err := s.collection(name)
	if err != nil {
		return false, err
	}
	res, err := st.put.Exec(data, id)
	if err != nil {
		return false, fmt.Errorf("failed to update row %d in %s: %w", id, name, err)
	}
	return affected(res)
}

// Remove implements storage.Store.
func (s *Store) Remove(name string, id int64) (bool, error) {
	st, err := s.collection(name)
	if err != nil {
		return false, err
	}
	res, err := st.remove.Exec(id)
	if err != nil {
		return false, fmt.Errorf("failed to delete row %d in %s: %w", id, name, err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, st := range s.stmts {
		errs = append(errs, st.close())
		delete(s.stmts, name)
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
