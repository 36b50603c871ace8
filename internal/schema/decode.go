package schema

import (
	"encoding/json"
	"math"
	"time"
)

// Decode restores declared types on a document that went through JSON.
//
// JSON has no integer or timestamp type, so a stored document comes back
// with float64 or json.Number numbers and RFC 3339 strings. Decode maps
// them back:
//
//	number     json.Number/float64 → int64 when integral, float64 otherwise
//	timestamp  RFC 3339 string     → time.Time
//	list       elements decoded with Items
//	nested     members decoded with Fields
//
// Undeclared fields only get their numbers normalized. Values that cannot be
// converted are kept as-is so validation can report them. The input is not
// modified.
func (s *Schema) Decode(doc map[string]any) map[string]any {
	return decodeFields(s.fields, doc)
}

func decodeFields(def Definition, doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		spec, _ := def.Lookup(k)
		out[k] = decodeValue(spec, v)
	}
	return out
}

func decodeValue(spec *FieldSpec, v any) any {
	if v == nil {
		return nil
	}
	if spec == nil {
		return normalize(v)
	}
	switch spec.Type {
	case Number:
		switch n := v.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
			if f, err := n.Float64(); err == nil {
				return numeric(f)
			}
		case float64:
			return numeric(n)
		}
		return v
	case Timestamp:
		if str, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
				return t
			}
		}
		return v
	case List:
		l, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(l))
		for i, e := range l {
			out[i] = decodeValue(spec.Items, e)
		}
		return out
	case Nested:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		return decodeFields(spec.Fields, m)
	default:
		return normalize(v)
	}
}

// normalize converts json.Number values anywhere in v.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// numeric stores whole numbers as int64, like SQLite's NUMERIC affinity.
func numeric(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && !math.IsNaN(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
