// Derives a Definition from a Go struct through JSON Schema reflection.

package schema

import (
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/maruel/docstore/internal/errors"
)

// FromType derives a Definition from the struct T.
//
// Field names and order come from the JSON Schema that
// github.com/invopop/jsonschema generates for T, so `json` tags are honored.
// A field is required when the reflector marks it required: by default that is
// every field without `omitempty`. Go types map to tags as follows:
//
//	string                 text
//	ints, uints, floats    number
//	bool                   boolean
//	time.Time              timestamp
//	[]byte                 text (JSON encodes it as base64)
//	slices, arrays         list, Items from the element type
//	maps                   nested
//	structs                nested, Fields from the struct
//
// Interface-typed fields are left undeclared.
func FromType[T any]() (Definition, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil, errors.Config("type must be a struct or pointer to struct, got %s", t)
	}
	return definitionFromStruct(t, map[reflect.Type]bool{})
}

func definitionFromStruct(t reflect.Type, visiting map[reflect.Type]bool) (Definition, error) {
	visiting[t] = true
	defer delete(visiting, t)

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	js := r.ReflectFromType(t)
	if js.Properties == nil {
		return Definition{}, nil
	}
	required := make(map[string]bool, len(js.Required))
	for _, name := range js.Required {
		required[name] = true
	}

	def := Definition{}
	for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
		field, ok := fieldByJSONName(t, pair.Key)
		if !ok {
			continue
		}
		spec, ok, err := specFromGoType(field.Type, visiting)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		spec.Required = required[pair.Key]
		def = append(def, Field{Name: pair.Key, Spec: spec})
	}
	return def, nil
}

func specFromGoType(t reflect.Type, visiting map[reflect.Type]bool) (FieldSpec, bool, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return FieldSpec{Type: Timestamp}, true, nil
	}
	switch t.Kind() {
	case reflect.String:
		return FieldSpec{Type: Text}, true, nil
	case reflect.Bool:
		return FieldSpec{Type: Boolean}, true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return FieldSpec{Type: Number}, true, nil
	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return FieldSpec{Type: Text}, true, nil
		}
		spec := FieldSpec{Type: List}
		items, ok, err := specFromGoType(t.Elem(), visiting)
		if err != nil {
			return FieldSpec{}, false, err
		}
		if ok {
			spec.Items = &items
		}
		return spec, true, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return FieldSpec{}, false, errors.Config("map key must be a string, got %s", t.Key())
		}
		return FieldSpec{Type: Nested}, true, nil
	case reflect.Struct:
		spec := FieldSpec{Type: Nested}
		if visiting[t] {
			// Recursive type: stop at the first repetition.
			return spec, true, nil
		}
		fields, err := definitionFromStruct(t, visiting)
		if err != nil {
			return FieldSpec{}, false, err
		}
		if len(fields) != 0 {
			spec.Fields = fields
		}
		return spec, true, nil
	default:
		return FieldSpec{}, false, nil
	}
}

// fieldByJSONName finds the struct field serialized under name, descending
// into embedded structs.
func fieldByJSONName(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		if field.Anonymous && field.Tag.Get("json") == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if f, ok := fieldByJSONName(ft, name); ok {
					return f, true
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if jsonFieldName(&field) == name {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}
