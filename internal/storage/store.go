// Package storage defines the persistence primitive documents are stored in.
//
// A [Store] holds named collections. Each collection is a two-column table:
// a storage-assigned integer id and an opaque text blob holding the
// serialized document. Implementations live in the jsonl and sqlite
// subpackages.
package storage

import (
	"fmt"
	"regexp"
)

// Row is one persisted record.
type Row struct {
	// ID is assigned by the store on insert and never reused after deletion.
	ID int64 `json:"id"`
	// Data is the serialized document.
	Data string `json:"data"`
}

// Store is a keyed blob table per collection.
//
// Operations on a collection that was never ensured fail. Implementations
// serialize their own writes but offer no transaction spanning several calls.
type Store interface {
	// EnsureCollection creates the collection if it does not exist yet.
	EnsureCollection(name string) error
	// Insert stores data in a new row and returns its id.
	Insert(name, data string) (int64, error)
	// All returns every row in ascending id order.
	All(name string) ([]Row, error)
	// Get returns the row with the given id.
	Get(name string, id int64) (Row, bool, error)
	// Put overwrites the data of an existing row. It returns false if the id
	// does not exist; no row is created.
	Put(name string, id int64, data string) (bool, error)
	// Remove deletes a row. It returns false if the id does not exist.
	Remove(name string, id int64) (bool, error)
	// Close releases the underlying resources.
	Close() error
}

var collectionNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateCollectionName checks that name is usable both as an SQL
// identifier and as a file name.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if !collectionNameRE.MatchString(name) {
		return fmt.Errorf("invalid collection name %q: must match %s", name, collectionNameRE)
	}
	return nil
}
