package wire

import (
	"fmt"
	"maps"
	"slices"
)

// FieldError reports a value that does not fit its field declaration.
type FieldError struct {
	Schema string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("wire: %s.%s: %s", e.Schema, e.Field, e.Reason)
}

// Message is a mutable, setter-based wire message bound to a Schema. Values
// are stored by field number; a field that was never set reads as absent.
//
// Canonical value types: string, int64, int32 (int32 and enum kinds), bool,
// []byte and *Message. Repeated fields hold []any of those, keyed fields hold
// map[string]string.
type Message struct {
	schema *Schema
	values map[uint32]any
}

// NewMessage returns an empty message for s.
func NewMessage(s *Schema) *Message {
	return &Message{schema: s, values: make(map[uint32]any)}
}

func (m *Message) Schema() *Schema { return m.schema }

// Has reports whether name was set.
func (m *Message) Has(name string) bool {
	f, ok := m.schema.Field(name)
	if !ok {
		return false
	}
	_, ok = m.values[f.Number]
	return ok
}

// Len returns the number of set fields.
func (m *Message) Len() int { return len(m.values) }

// Set stores v under name after checking it against the declaration. Slices,
// maps and byte strings are copied.
func (m *Message) Set(name string, v any) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	var norm any
	switch f.Label {
	case Repeated:
		norm, err = m.normalizeList(f, v)
	case Keyed:
		mp, ok := v.(map[string]string)
		if !ok {
			return m.fieldErr(f, "want map[string]string, got %T", v)
		}
		cp := maps.Clone(mp)
		if cp == nil {
			cp = map[string]string{}
		}
		norm = cp
	default:
		norm, err = m.normalizeScalar(f, v)
	}
	if err != nil {
		return err
	}
	m.values[f.Number] = norm
	return nil
}

// Get returns the raw stored value.
func (m *Message) Get(name string) (any, bool) {
	f, ok := m.schema.Field(name)
	if !ok {
		return nil, false
	}
	v, ok := m.values[f.Number]
	return v, ok
}

func (m *Message) GetString(name string) string {
	v, _ := m.Get(name)
	s, _ := v.(string)
	return s
}

func (m *Message) GetInt64(name string) int64 {
	v, _ := m.Get(name)
	n, _ := v.(int64)
	return n
}

func (m *Message) GetInt32(name string) int32 {
	v, _ := m.Get(name)
	n, _ := v.(int32)
	return n
}

func (m *Message) GetBool(name string) bool {
	v, _ := m.Get(name)
	b, _ := v.(bool)
	return b
}

func (m *Message) GetBytes(name string) []byte {
	v, _ := m.Get(name)
	b, _ := v.([]byte)
	return b
}

// GetMessage returns the nested message, or nil when unset.
func (m *Message) GetMessage(name string) *Message {
	v, _ := m.Get(name)
	sub, _ := v.(*Message)
	return sub
}

// GetList returns the elements of a repeated field; unset reads as empty.
func (m *Message) GetList(name string) []any {
	v, _ := m.Get(name)
	l, _ := v.([]any)
	return l
}

// GetMap returns the entries of a keyed field; unset reads as empty.
func (m *Message) GetMap(name string) map[string]string {
	v, _ := m.Get(name)
	mp, _ := v.(map[string]string)
	return mp
}

func (m *Message) field(name string) (*Field, error) {
	f, ok := m.schema.Field(name)
	if !ok {
		return nil, &FieldError{Schema: m.schema.Name, Field: name, Reason: "no such field"}
	}
	return f, nil
}

func (m *Message) fieldErr(f *Field, format string, args ...any) error {
	return &FieldError{Schema: m.schema.Name, Field: f.Name, Reason: fmt.Sprintf(format, args...)}
}

func (m *Message) normalizeScalar(f *Field, v any) (any, error) {
	switch f.Kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindInt64:
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case KindInt32, KindEnum:
		if n, ok := v.(int32); ok {
			return n, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindBytes:
		if b, ok := v.([]byte); ok {
			return slices.Clone(b), nil
		}
	case KindMessage:
		sub, ok := v.(*Message)
		if !ok {
			break
		}
		if sub == nil {
			return nil, m.fieldErr(f, "nil message; use Clear to unset")
		}
		if sub.schema != f.Schema {
			return nil, m.fieldErr(f, "want message %s, got %s", f.Schema.Name, sub.schema.Name)
		}
		return sub, nil
	}
	return nil, m.fieldErr(f, "want %s, got %T", f.Kind, v)
}

func (m *Message) normalizeList(f *Field, v any) (any, error) {
	var items []any
	switch l := v.(type) {
	case []any:
		items = l
	case []string:
		items = toAny(l)
	case []int64:
		items = toAny(l)
	case []int32:
		items = toAny(l)
	case []bool:
		items = toAny(l)
	case [][]byte:
		items = toAny(l)
	case []*Message:
		items = toAny(l)
	default:
		return nil, m.fieldErr(f, "want a list, got %T", v)
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		elem, err := m.normalizeScalar(f, item)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
