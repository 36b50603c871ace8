// Package schema declares field-typed document shapes and validates candidate
// documents against them.
//
// A [Schema] is built once from a [Definition] and is immutable afterwards.
// Field types form a closed set of [TypeTag] values resolved at construction,
// so validation never compares type names at runtime.
package schema

import (
	"strings"
	"time"

	"github.com/maruel/docstore/internal/errors"
)

// TypeTag is the declared type of a field.
type TypeTag string

const (
	// Text stores string values.
	Text TypeTag = "text"
	// Number stores integer or floating point values.
	Number TypeTag = "number"
	// Boolean stores true/false.
	Boolean TypeTag = "boolean"
	// Timestamp stores time.Time values, serialized as RFC 3339 text.
	Timestamp TypeTag = "timestamp"
	// List stores arrays; Items optionally constrains the elements.
	List TypeTag = "list"
	// Nested stores an object; Fields optionally constrains its members.
	Nested TypeTag = "nested"
)

// ParseTypeTag resolves a type name to a TypeTag.
//
// Besides the canonical tag names it accepts the constructor-style names
// String, Number, Boolean, Date, Array and Object, case-insensitively.
func ParseTypeTag(s string) (TypeTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return Text, nil
	case "number", "int", "integer", "float":
		return Number, nil
	case "boolean", "bool":
		return Boolean, nil
	case "timestamp", "date", "datetime", "time":
		return Timestamp, nil
	case "list", "array":
		return List, nil
	case "nested", "object", "map":
		return Nested, nil
	default:
		return "", errors.Config("unknown field type %q", s)
	}
}

// Valid reports whether t is one of the declared tags.
func (t TypeTag) Valid() bool {
	switch t {
	case Text, Number, Boolean, Timestamp, List, Nested:
		return true
	default:
		return false
	}
}

// FieldSpec is the declared shape of one field.
type FieldSpec struct {
	Type     TypeTag
	Required bool
	// Unique is accepted for compatibility with schema files but is not
	// enforced: there is no index to check it against.
	Unique bool
	// Default is applied on create when the field is absent or nil. A
	// func() any or func() time.Time is called for every create.
	Default any
	// Items constrains list elements. Only valid with List.
	Items *FieldSpec
	// Fields constrains nested members. Only valid with Nested.
	Fields Definition
}

// Field is a named FieldSpec.
type Field struct {
	Name string
	Spec FieldSpec
}

// Definition is an ordered list of fields.
type Definition []Field

// Lookup returns the spec of the named field.
func (d Definition) Lookup(name string) (*FieldSpec, bool) {
	for i := range d {
		if d[i].Name == name {
			return &d[i].Spec, true
		}
	}
	return nil, false
}

func (d Definition) clone() Definition {
	if d == nil {
		return nil
	}
	out := make(Definition, len(d))
	for i, f := range d {
		out[i] = Field{Name: f.Name, Spec: f.Spec.clone()}
	}
	return out
}

func (s FieldSpec) clone() FieldSpec {
	c := s
	if s.Items != nil {
		items := s.Items.clone()
		c.Items = &items
	}
	c.Fields = s.Fields.clone()
	return c
}

// Observer is notified around every validation.
//
// BeforeValidate may reject a candidate by returning an error, which is
// returned unchanged by [Schema.Validate]. AfterValidate receives the final
// outcome.
type Observer interface {
	BeforeValidate(candidate map[string]any, isCreate bool) error
	AfterValidate(candidate map[string]any, isCreate bool, err error)
}

// Hooks adapts plain functions to [Observer]. Nil functions are skipped.
type Hooks struct {
	Before func(candidate map[string]any, isCreate bool) error
	After  func(candidate map[string]any, isCreate bool, err error)
}

// BeforeValidate implements [Observer].
func (h Hooks) BeforeValidate(candidate map[string]any, isCreate bool) error {
	if h.Before == nil {
		return nil
	}
	return h.Before(candidate, isCreate)
}

// AfterValidate implements [Observer].
func (h Hooks) AfterValidate(candidate map[string]any, isCreate bool, err error) {
	if h.After != nil {
		h.After(candidate, isCreate, err)
	}
}

// Option configures a Schema at construction.
type Option func(*Schema)

// WithObserver registers an observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(s *Schema) {
		s.observers = append(s.observers, o)
	}
}

// Schema wraps an immutable Definition.
type Schema struct {
	fields    Definition
	observers []Observer
}

// New validates def and returns a Schema holding a private copy of it.
func New(def Definition, opts ...Option) (*Schema, error) {
	fields := def.clone()
	if err := checkDefinition(fields, ""); err != nil {
		return nil, err
	}
	s := &Schema{fields: fields}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Fields returns a copy of the definition.
func (s *Schema) Fields() Definition {
	return s.fields.clone()
}

// Names returns the declared field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func checkDefinition(def Definition, prefix string) error {
	seen := make(map[string]bool, len(def))
	for i := range def {
		f := &def[i]
		if f.Name == "" {
			return errors.Config("field %d%s: name is required", i, inField(prefix))
		}
		path := prefix + f.Name
		if seen[f.Name] {
			return errors.Config("field %s: declared twice", path)
		}
		seen[f.Name] = true
		if err := checkSpec(&f.Spec, path); err != nil {
			return err
		}
	}
	return nil
}

func checkSpec(spec *FieldSpec, path string) error {
	if !spec.Type.Valid() {
		return errors.Config("field %s: unknown type %q", path, spec.Type)
	}
	if spec.Items != nil {
		if spec.Type != List {
			return errors.Config("field %s: items is only valid for %s", path, List)
		}
		if err := checkSpec(spec.Items, path+"[]"); err != nil {
			return err
		}
	}
	if len(spec.Fields) != 0 {
		if spec.Type != Nested {
			return errors.Config("field %s: fields is only valid for %s", path, Nested)
		}
		if err := checkDefinition(spec.Fields, path+"."); err != nil {
			return err
		}
	}
	switch spec.Default.(type) {
	case nil, func() any, func() time.Time:
	default:
		spec.Default = decodeValue(spec, spec.Default)
		if err := checkValue(path, spec, spec.Default, false); err != nil {
			return errors.Config("field %s: invalid default: %v", path, err)
		}
	}
	return nil
}

func inField(prefix string) string {
	if prefix == "" {
		return ""
	}
	return " of " + strings.TrimSuffix(prefix, ".")
}

// ApplyDefaults returns a shallow copy of candidate with defaults filled in
// for top-level fields that are absent or nil.
func (s *Schema) ApplyDefaults(candidate map[string]any) map[string]any {
	out := make(map[string]any, len(candidate)+len(s.fields))
	for k, v := range candidate {
		out[k] = v
	}
	for _, f := range s.fields {
		if v, ok := out[f.Name]; ok && v != nil {
			continue
		}
		switch d := f.Spec.Default.(type) {
		case nil:
		case func() any:
			out[f.Name] = d()
		case func() time.Time:
			out[f.Name] = d()
		default:
			out[f.Name] = cloneValue(d)
		}
	}
	return out
}

// cloneValue copies lists and maps so a shared default is never aliased by
// two records.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
