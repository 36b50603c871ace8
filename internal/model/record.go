package model

import (
	"encoding/json"
	"maps"

	"github.com/maruel/docstore/internal/errors"
)

// Record is a live view of one stored document.
//
// Fields can be read and mutated freely; nothing is written until Save is
// called. Save does not validate: the caller is trusted to keep the document
// consistent with the schema.
type Record struct {
	ID     int64
	Fields map[string]any

	model *Model
}

// Get returns the value of field, or nil if absent.
func (r *Record) Get(field string) any {
	return r.Fields[field]
}

// Set assigns field in memory.
func (r *Record) Set(field string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[field] = value
}

// Save overwrites the stored document at the record's id with the current
// fields. If the row was deleted in the meantime Save does nothing.
func (r *Record) Save() error {
	blob, err := encode(r.Fields)
	if err != nil {
		return err
	}
	ok, err := r.model.store.Put(r.model.name, r.ID, blob)
	if err != nil {
		return errors.Storage("save "+r.model.name, err)
	}
	if !ok {
		r.model.log.Debug("save skipped, record is gone", "id", r.ID)
		return nil
	}
	r.model.log.Debug("saved", "id", r.ID)
	return nil
}

// Delete removes the stored document. Deleting a record that is already gone
// is not an error.
func (r *Record) Delete() error {
	ok, err := r.model.store.Remove(r.model.name, r.ID)
	if err != nil {
		return errors.Storage("delete from "+r.model.name, err)
	}
	r.model.log.Debug("record deleted", "id", r.ID, "existed", ok)
	return nil
}

// MarshalJSON renders the record as its fields plus "id". A document field
// named "id" is shadowed in the output by the record id; it is still stored
// and readable through Get.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	maps.Copy(out, r.Fields)
	out["id"] = r.ID
	return json.Marshal(out)
}
