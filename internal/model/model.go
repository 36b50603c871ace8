// Package model binds a Schema to a named collection and exposes CRUD
// operations over it.
//
// Every read is a full scan of the collection: there is no index. Rows are
// decoded and matched in storage order, which is ascending id for both stores
// in this module.
package model

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"maps"

	"github.com/maruel/docstore/internal/errors"
	"github.com/maruel/docstore/internal/match"
	"github.com/maruel/docstore/internal/schema"
	"github.com/maruel/docstore/internal/storage"
)

// Model is a registered collection.
type Model struct {
	store  storage.Store
	name   string
	schema *schema.Schema
	log    *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for operation traces. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// New registers the collection name in store, creating it if needed, and
// returns a Model validating against s. Registering the same name twice is
// harmless.
func New(store storage.Store, name string, s *schema.Schema, opts ...Option) (*Model, error) {
	if store == nil {
		return nil, errors.Config("model %q: store is required", name)
	}
	if s == nil {
		return nil, errors.Config("model %q: schema is required", name)
	}
	if err := storage.ValidateCollectionName(name); err != nil {
		return nil, errors.Config("model: %v", err)
	}
	m := &Model{store: store, name: name, schema: s, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	if err := store.EnsureCollection(name); err != nil {
		return nil, errors.Storage("ensure collection "+name, err)
	}
	m.log = m.log.With("collection", name)
	return m, nil
}

// Name returns the collection name.
func (m *Model) Name() string {
	return m.name
}

// Schema returns the schema documents are validated against.
func (m *Model) Schema() *schema.Schema {
	return m.schema
}

// Create validates data and persists it as a new record.
//
// data is copied and defaults are applied to the copy; the caller's map is
// never modified. On error nothing is written.
func (m *Model) Create(data map[string]any) (*Record, error) {
	doc := m.schema.ApplyDefaults(data)
	if err := m.schema.Validate(doc, true); err != nil {
		return nil, err
	}
	blob, err := encode(doc)
	if err != nil {
		return nil, err
	}
	id, err := m.store.Insert(m.name, blob)
	if err != nil {
		return nil, errors.Storage("insert into "+m.name, err)
	}
	m.log.Debug("created", "id", id)
	return &Record{ID: id, Fields: doc, model: m}, nil
}

// FindOne returns the first record matching conds in storage order. It
// returns an error matching errors.ErrNotFound when nothing matches.
func (m *Model) FindOne(conds match.Conditions) (*Record, error) {
	var found *Record
	err := m.scan(func(r *Record) bool {
		if match.Matches(r.Fields, conds) {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errors.NotFound(m.name)
	}
	return found, nil
}

// FindAll returns every record matching conds in storage order. The result is
// empty, not nil, when nothing matches.
func (m *Model) FindAll(conds match.Conditions) ([]*Record, error) {
	out := []*Record{}
	err := m.scan(func(r *Record) bool {
		if match.Matches(r.Fields, conds) {
			out = append(out, r)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("find", "matched", len(out))
	return out, nil
}

// Find returns every record.
func (m *Model) Find() ([]*Record, error) {
	return m.FindAll(nil)
}

// FindByID returns the record with the given id.
func (m *Model) FindByID(id int64) (*Record, error) {
	row, ok, err := m.store.Get(m.name, id)
	if err != nil {
		return nil, errors.Storage("get from "+m.name, err)
	}
	if !ok {
		return nil, errors.NotFound(m.name).WithDetail("id", id)
	}
	return m.decode(row)
}

// Count returns the number of records matching conds.
func (m *Model) Count(conds match.Conditions) (int, error) {
	n := 0
	err := m.scan(func(r *Record) bool {
		if match.Matches(r.Fields, conds) {
			n++
		}
		return true
	})
	return n, err
}

// Update merges data over every record matching conds and returns how many
// were written.
//
// data is validated as a partial document: required fields may be omitted.
// The merge is shallow; a nested field in data replaces the stored one
// entirely. A storage failure stops the update and the records already
// written stay written.
func (m *Model) Update(conds match.Conditions, data map[string]any) (int, error) {
	if err := m.schema.Validate(data, false); err != nil {
		return 0, err
	}
	targets, err := m.FindAll(conds)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range targets {
		merged := maps.Clone(r.Fields)
		if merged == nil {
			merged = make(map[string]any, len(data))
		}
		maps.Copy(merged, data)
		blob, err := encode(merged)
		if err != nil {
			return n, err
		}
		ok, err := m.store.Put(m.name, r.ID, blob)
		if err != nil {
			return n, errors.Storage("update "+m.name, err)
		}
		if ok {
			n++
		}
	}
	m.log.Debug("updated", "count", n)
	return n, nil
}

// Delete removes every record matching conds and returns how many were
// removed. A storage failure stops the deletion and the records already
// removed stay removed.
func (m *Model) Delete(conds match.Conditions) (int, error) {
	targets, err := m.FindAll(conds)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range targets {
		ok, err := m.store.Remove(m.name, r.ID)
		if err != nil {
			return n, errors.Storage("delete from "+m.name, err)
		}
		if ok {
			n++
		}
	}
	m.log.Debug("deleted", "count", n)
	return n, nil
}

// scan decodes every row in storage order and calls fn until it returns
// false.
func (m *Model) scan(fn func(*Record) bool) error {
	rows, err := m.store.All(m.name)
	if err != nil {
		return errors.Storage("scan "+m.name, err)
	}
	for _, row := range rows {
		r, err := m.decode(row)
		if err != nil {
			return err
		}
		if !fn(r) {
			break
		}
	}
	return nil
}

func (m *Model) decode(row storage.Row) (*Record, error) {
	d := json.NewDecoder(bytes.NewReader([]byte(row.Data)))
	d.UseNumber()
	var doc map[string]any
	if err := d.Decode(&doc); err != nil {
		return nil, errors.Storage("decode row", err).WithDetail("collection", m.name).WithDetail("id", row.ID)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return &Record{ID: row.ID, Fields: m.schema.Decode(doc), model: m}, nil
}

func encode(doc map[string]any) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Storage("encode document", err)
	}
	return string(b), nil
}
