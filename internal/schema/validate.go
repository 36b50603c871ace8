package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/maruel/docstore/internal/errors"
)

var timeType = reflect.TypeFor[time.Time]()

// Validate checks candidate against the schema.
//
// Required fields are only enforced when isCreate is true, which lets updates
// carry a partial document. A field that is present and non-nil must match its
// declared type. Undeclared fields are accepted. The first failure is
// returned as an [errors.ErrMissingField] or [errors.ErrTypeMismatch] error.
func (s *Schema) Validate(candidate map[string]any, isCreate bool) error {
	for _, o := range s.observers {
		if err := o.BeforeValidate(candidate, isCreate); err != nil {
			return err
		}
	}
	err := validateFields(s.fields, candidate, isCreate, "")
	for _, o := range s.observers {
		o.AfterValidate(candidate, isCreate, err)
	}
	return err
}

func validateFields(def Definition, doc map[string]any, isCreate bool, prefix string) error {
	for i := range def {
		f := &def[i]
		path := prefix + f.Name
		v, ok := doc[f.Name]
		if !ok || v == nil {
			if f.Spec.Required && isCreate {
				return errors.MissingField(path)
			}
			continue
		}
		if err := checkValue(path, &f.Spec, v, isCreate); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(path string, spec *FieldSpec, v any, isCreate bool) error {
	mismatch := func() error {
		return errors.TypeMismatch(path, string(spec.Type), v)
	}
	rv := reflect.ValueOf(v)
	switch spec.Type {
	case Text:
		if _, ok := v.(json.Number); ok || rv.Kind() != reflect.String {
			return mismatch()
		}
	case Number:
		if !isNumber(v) {
			return mismatch()
		}
	case Boolean:
		if rv.Kind() != reflect.Bool {
			return mismatch()
		}
	case Timestamp:
		if rv.Type() != timeType {
			return mismatch()
		}
	case List:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch()
		}
		if spec.Items == nil {
			return nil
		}
		for i := range rv.Len() {
			e := rv.Index(i).Interface()
			if e == nil {
				continue
			}
			if err := checkValue(fmt.Sprintf("%s[%d]", path, i), spec.Items, e, isCreate); err != nil {
				return err
			}
		}
	case Nested:
		m, ok := asMap(v)
		if !ok {
			return mismatch()
		}
		if len(spec.Fields) != 0 {
			return validateFields(spec.Fields, m, isCreate, path+".")
		}
	}
	return nil
}

// isNumber reports whether v is a number JSON can represent: NaN and
// infinities are rejected.
func isNumber(v any) bool {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

// asMap returns v as a map[string]any if it is any map keyed by strings.
func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}
