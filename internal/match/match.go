// Package match evaluates field conditions against documents.
//
// A condition maps a field name to either a literal value or a predicate.
// All conditions must hold for a document to match; there is no OR, no range
// operator and no nested-field addressing.
package match

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Document is a decoded record: field name to JSON-compatible value.
type Document = map[string]any

// Func is a predicate condition. It receives the field value, or nil when the
// field is absent.
type Func func(v any) bool

// Conditions maps field names to a literal or a predicate ([Func] or
// func(any) bool). A nil or empty Conditions matches every document.
type Conditions map[string]any

// Matches reports whether doc satisfies every condition.
func Matches(doc Document, conds Conditions) bool {
	for key, want := range conds {
		got := doc[key]
		switch p := want.(type) {
		case Func:
			if p == nil || !p(got) {
				return false
			}
		case func(any) bool:
			if p == nil || !p(got) {
				return false
			}
		default:
			if !Equal(got, want) {
				return false
			}
		}
	}
	return true
}

// Equal compares two field values.
//
// Numbers compare by exact value across Go kinds, so int(30) equals int64(30)
// and float64(30), but int64(1<<53+1) does not equal float64(1<<53). NaN
// equals nothing. Timestamps use time.Time.Equal. Lists and maps compare
// element-wise with the same rules. nil only equals nil.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		return ok && na.equal(nb)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Slice, reflect.Array:
		if vb.Kind() != reflect.Slice && vb.Kind() != reflect.Array {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		for i := range va.Len() {
			if !Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		if vb.Kind() != reflect.Map || va.Type().Key().Kind() != reflect.String || vb.Type().Key().Kind() != reflect.String {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		for _, k := range va.MapKeys() {
			other := vb.MapIndex(reflect.ValueOf(k.String()).Convert(vb.Type().Key()))
			if !other.IsValid() || !Equal(va.MapIndex(k).Interface(), other.Interface()) {
				return false
			}
		}
		return true
	default:
		if va.Type() != vb.Type() {
			return false
		}
		return reflect.DeepEqual(a, b)
	}
}

type numKind int

const (
	signed numKind = iota
	unsigned
	float
)

// number holds a numeric value without losing integer precision.
type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

// toNumber classifies v. NaN is not a number for matching purposes.
func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{kind: signed, i: int64(n)}, true
	case int8:
		return number{kind: signed, i: int64(n)}, true
	case int16:
		return number{kind: signed, i: int64(n)}, true
	case int32:
		return number{kind: signed, i: int64(n)}, true
	case int64:
		return number{kind: signed, i: n}, true
	case uint:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint8:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint16:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint32:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint64:
		return number{kind: unsigned, u: n}, true
	case float32:
		return number{kind: float, f: float64(n)}, !math.IsNaN(float64(n))
	case float64:
		return number{kind: float, f: n}, !math.IsNaN(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return number{kind: signed, i: i}, true
		}
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return number{kind: unsigned, u: u}, true
		}
		f, err := n.Float64()
		return number{kind: float, f: f}, err == nil && !math.IsNaN(f)
	default:
		return number{}, false
	}
}

func (a number) equal(b number) bool {
	if a.kind > b.kind {
		a, b = b, a
	}
	switch {
	case a.kind == signed && b.kind == signed:
		return a.i == b.i
	case a.kind == unsigned && b.kind == unsigned:
		return a.u == b.u
	case a.kind == signed && b.kind == unsigned:
		return a.i >= 0 && uint64(a.i) == b.u
	case a.kind == float && b.kind == float:
		return a.f == b.f
	}
	// One integer, one float: equal only if the float is exactly that integer.
	f := b.f
	if f != math.Trunc(f) {
		return false
	}
	if a.kind == signed {
		return f >= -(1<<63) && f < 1<<63 && int64(f) == a.i
	}
	return f >= 0 && f < 1<<64 && uint64(f) == a.u
}
