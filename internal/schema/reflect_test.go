package schema

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/maruel/docstore/internal/errors"
)

type address struct {
	City string `json:"city"`
	Zip  int    `json:"zip,omitempty"`
}

type Audit struct {
	CreatedAt time.Time `json:"createdAt"`
}

type user struct {
	Audit
	Name    string            `json:"name"`
	Email   string            `json:"email,omitempty"`
	Age     float64           `json:"age,omitempty"`
	Active  bool              `json:"active,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Address *address          `json:"address,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
	Avatar  []byte            `json:"avatar,omitempty"`
	Extra   any               `json:"extra,omitempty"`
	secret  string
	Skipped string `json:"-"`
}

func TestFromType(t *testing.T) {
	def, err := FromType[*user]()
	if err != nil {
		t.Fatalf("FromType failed: %v", err)
	}
	want := map[string]FieldSpec{
		"createdAt": {Type: Timestamp, Required: true},
		"name":      {Type: Text, Required: true},
		"email":     {Type: Text},
		"age":       {Type: Number},
		"active":    {Type: Boolean},
		"tags":      {Type: List},
		"address":   {Type: Nested},
		"labels":    {Type: Nested},
		"avatar":    {Type: Text},
	}
	if len(def) != len(want) {
		names := make([]string, len(def))
		for i, f := range def {
			names[i] = f.Name
		}
		t.Fatalf("got fields %v, want %d fields", names, len(want))
	}
	for _, f := range def {
		w, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected field %q", f.Name)
			continue
		}
		if f.Spec.Type != w.Type || f.Spec.Required != w.Required {
			t.Errorf("%s = {%s required=%v}, want {%s required=%v}", f.Name, f.Spec.Type, f.Spec.Required, w.Type, w.Required)
		}
	}

	tags, _ := def.Lookup("tags")
	if tags.Items == nil || tags.Items.Type != Text {
		t.Errorf("tags items = %+v, want text", tags.Items)
	}
	addr, _ := def.Lookup("address")
	city, ok := addr.Fields.Lookup("city")
	if !ok || city.Type != Text || !city.Required {
		t.Errorf("address.city = %+v", city)
	}
	if zip, ok := addr.Fields.Lookup("zip"); !ok || zip.Required {
		t.Errorf("address.zip = %+v", zip)
	}

	s, err := New(def)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = s.Validate(map[string]any{"name": "John", "createdAt": time.Now(), "address": map[string]any{"city": "Paris"}}, true)
	if err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFromTypeNotStruct(t *testing.T) {
	if _, err := FromType[int](); !stderrors.Is(err, errors.ErrConfig) {
		t.Errorf("FromType[int]() error = %v, want ErrConfig", err)
	}
	if _, err := FromType[time.Time](); !stderrors.Is(err, errors.ErrConfig) {
		t.Errorf("FromType[time.Time]() error = %v, want ErrConfig", err)
	}
}
