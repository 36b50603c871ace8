package schema

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	s := mustNew(t, userDefinition())
	created := time.Date(2024, 3, 4, 5, 6, 7, 800, time.UTC)
	in := map[string]any{
		"name":      "John",
		"age":       30,
		"createdAt": created,
		"tags":      []string{"a", "b"},
		"address":   map[string]any{"city": "Paris", "zip": 75001},
		"score":     1.5,
		"extra":     map[string]any{"n": 2},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		t.Fatal(err)
	}

	got := s.Decode(decoded)
	if got["age"] != int64(30) {
		t.Errorf("age = %#v, want int64(30)", got["age"])
	}
	if ts, ok := got["createdAt"].(time.Time); !ok || !ts.Equal(created) {
		t.Errorf("createdAt = %#v, want %v", got["createdAt"], created)
	}
	addr, ok := got["address"].(map[string]any)
	if !ok || addr["zip"] != int64(75001) || addr["city"] != "Paris" {
		t.Errorf("address = %#v", got["address"])
	}
	if got["score"] != 1.5 {
		t.Errorf("undeclared score = %#v, want 1.5", got["score"])
	}
	if extra := got["extra"].(map[string]any); extra["n"] != int64(2) {
		t.Errorf("undeclared nested number = %#v, want int64(2)", extra["n"])
	}
	if tags := got["tags"].([]any); len(tags) != 2 || tags[0] != "a" {
		t.Errorf("tags = %#v", got["tags"])
	}
	if err := s.Validate(got, true); err != nil {
		t.Errorf("decoded document does not validate: %v", err)
	}
	if _, isNum := decoded["age"].(json.Number); !isNum {
		t.Error("Decode modified its input")
	}
}

func TestDecodeKeepsUnconvertible(t *testing.T) {
	s := mustNew(t, userDefinition())
	got := s.Decode(map[string]any{"age": "old", "createdAt": "yesterday", "ratio": 0.25})
	if got["age"] != "old" || got["createdAt"] != "yesterday" {
		t.Errorf("unconvertible values changed: %v", got)
	}
	if s.Decode(nil) != nil {
		t.Error("Decode(nil) should be nil")
	}
	if v := s.Decode(map[string]any{"age": 2.5})["age"]; v != 2.5 {
		t.Errorf("fractional age = %#v, want 2.5", v)
	}
	if v := s.Decode(map[string]any{"age": 3.0})["age"]; v != int64(3) {
		t.Errorf("whole float age = %#v, want int64(3)", v)
	}
}
