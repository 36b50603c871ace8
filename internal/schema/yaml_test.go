package schema

import (
	stderrors "errors"
	"testing"

	"github.com/maruel/docstore/internal/errors"
)

func TestParseYAML(t *testing.T) {
	src := `
name: {type: String, required: true}
email:
  type: text
  unique: true
age: {type: number, default: 18}
tags: {type: list, items: text}
address:
  type: nested
  fields:
    city: {type: text, required: true}
    zip: number
`
	def, err := ParseYAML([]byte(src))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	wantNames := []string{"name", "email", "age", "tags", "address"}
	if len(def) != len(wantNames) {
		t.Fatalf("got %d fields, want %d", len(def), len(wantNames))
	}
	for i, n := range wantNames {
		if def[i].Name != n {
			t.Errorf("field %d = %q, want %q", i, def[i].Name, n)
		}
	}
	if !def[0].Spec.Required || def[0].Spec.Type != Text {
		t.Errorf("name spec = %+v", def[0].Spec)
	}
	if !def[1].Spec.Unique {
		t.Errorf("email should be unique: %+v", def[1].Spec)
	}
	if def[2].Spec.Default != 18 {
		t.Errorf("age default = %#v, want 18", def[2].Spec.Default)
	}
	if def[3].Spec.Items == nil || def[3].Spec.Items.Type != Text {
		t.Errorf("tags items = %+v", def[3].Spec.Items)
	}
	addr := def[4].Spec
	if addr.Type != Nested || len(addr.Fields) != 2 || addr.Fields[1].Spec.Type != Number || !addr.Fields[0].Spec.Required {
		t.Errorf("address spec = %+v", addr)
	}

	s, err := New(def)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Validate(s.ApplyDefaults(map[string]any{"name": "John"}), true); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"not a mapping", "- a\n- b\n"},
		{"unknown type", "a: uuid\n"},
		{"missing type", "a: {required: true}\n"},
		{"unknown option", "a: {type: text, indexed: true}\n"},
		{"bad required", "a: {type: text, required: maybe}\n"},
		{"bad nested fields", "a: {type: nested, fields: [1, 2]}\n"},
		{"syntax", "a: {type: text\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.src))
			if !stderrors.Is(err, errors.ErrConfig) {
				t.Errorf("ParseYAML() error = %v, want ErrConfig", err)
			}
		})
	}
}
