package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SpecKind discriminates the variants of SpecValue
type SpecKind int

const (
	SpecScalar SpecKind = iota
	SpecList
	SpecMapping
)

// String returns the kind name
func (k SpecKind) String() string {
	switch k {
	case SpecScalar:
		return "scalar"
	case SpecList:
		return "list"
	case SpecMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// SpecValue is a specification value: a scalar, a list of values, or an
// ordered mapping of keys to values.
type SpecValue struct {
	kind    SpecKind
	scalar  string
	literal bool // scalar holds a JSON number or boolean
	items   []SpecValue
	entries Specifications
}

// SpecEntry is one key/value pair of an ordered specification mapping
type SpecEntry struct {
	Key   string
	Value SpecValue
}

// Specifications is an ordered specification mapping. Source key order is
// preserved through JSON decoding.
type Specifications []SpecEntry

// Scalar builds a scalar value
func Scalar(s string) SpecValue {
	return SpecValue{kind: SpecScalar, scalar: s}
}

// List builds a list value
func List(items ...SpecValue) SpecValue {
	return SpecValue{kind: SpecList, items: items}
}

// Mapping builds a nested mapping value
func Mapping(entries ...SpecEntry) SpecValue {
	return SpecValue{kind: SpecMapping, entries: entries}
}

// Entry is shorthand for SpecEntry{Key: key, Value: value}
func Entry(key string, value SpecValue) SpecEntry {
	return SpecEntry{Key: key, Value: value}
}

// Kind reports which variant v holds
func (v SpecValue) Kind() SpecKind {
	return v.kind
}

// Items returns the elements of a list value (nil for other kinds)
func (v SpecValue) Items() []SpecValue {
	return v.items
}

// Entries returns the ordered entries of a mapping value (nil for other kinds)
func (v SpecValue) Entries() Specifications {
	return v.entries
}

// String renders the value as inline text. Lists are joined with ", " and
// mappings render as "{k: v, k2: v2}".
func (v SpecValue) String() string {
	switch v.kind {
	case SpecList:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	case SpecMapping:
		parts := make([]string, len(v.entries))
		for i, e := range v.entries {
			parts[i] = e.Key + ": " + e.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.scalar
	}
}

// UnmarshalJSON decodes any JSON value into the matching variant
func (v *SpecValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrInvalidSpecValue
	}

	switch trimmed[0] {
	case '{':
		var entries Specifications
		if err := entries.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		*v = Mapping(entries...)
	case '[':
		var items []SpecValue
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("failed to decode list value: %w", err)
		}
		*v = List(items...)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("failed to decode string value: %w", err)
		}
		*v = Scalar(s)
	default:
		// numbers, booleans and null keep their literal form
		if bytes.Equal(trimmed, []byte("null")) {
			*v = Scalar("")
			return nil
		}
		if !json.Valid(trimmed) {
			return fmt.Errorf("%w: %s", ErrInvalidSpecValue, trimmed)
		}
		*v = SpecValue{kind: SpecScalar, scalar: string(trimmed), literal: true}
	}
	return nil
}

// MarshalJSON encodes the value back into JSON, keeping mapping order
func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case SpecList:
		if v.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	case SpecMapping:
		return v.entries.MarshalJSON()
	default:
		if v.literal {
			return []byte(v.scalar), nil
		}
		return json.Marshal(v.scalar)
	}
}

// Len returns the number of top-level entries
func (s Specifications) Len() int {
	return len(s)
}

// Get returns the value stored under key
func (s Specifications) Get(key string) (SpecValue, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Value, true
		}
	}
	return SpecValue{}, false
}

// UnmarshalJSON decodes a JSON object keeping its key order
func (s *Specifications) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	om := orderedmap.New[string, SpecValue]()
	if err := json.Unmarshal(trimmed, om); err != nil {
		return fmt.Errorf("failed to decode specifications: %w", err)
	}

	entries := make(Specifications, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, SpecEntry{Key: pair.Key, Value: pair.Value})
	}
	*s = entries
	return nil
}

// MarshalJSON encodes the mapping as a JSON object in entry order
func (s Specifications) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, SpecValue](len(s))
	for _, e := range s {
		om.Set(e.Key, e.Value)
	}
	return json.Marshal(om)
}
