package wire

import "fmt"

// Kind is the value kind carried by a field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt64
	KindInt32
	KindEnum
	KindBool
	KindBytes
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindInt32:
		return "int32"
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindMessage:
		return "message"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label tells whether a field holds one value, an ordered list, or a string map.
type Label int

const (
	Singular Label = iota
	Repeated
	Keyed
)

// Field declares one member of a Schema.
type Field struct {
	Number   uint32
	Name     string
	Kind     Kind
	Label    Label
	Required bool
	// Schema is set for KindMessage fields.
	Schema *Schema
}

// IsMessage reports whether the field carries nested messages.
func (f *Field) IsMessage() bool { return f.Kind == KindMessage }

// Schema is the declared, closed shape of one message type.
type Schema struct {
	Name   string
	fields []*Field
	byName map[string]*Field
	byNum  map[uint32]*Field
}

// NewSchema builds a schema from field declarations. It panics on duplicate
// names or numbers since schemas are declared at package init.
func NewSchema(name string, fields ...Field) *Schema {
	s := &Schema{
		Name:   name,
		byName: make(map[string]*Field, len(fields)),
		byNum:  make(map[uint32]*Field, len(fields)),
	}
	for i := range fields {
		f := fields[i]
		if f.Number == 0 {
			panic(fmt.Sprintf("wire: schema %s field %s has number 0", name, f.Name))
		}
		if _, ok := s.byName[f.Name]; ok {
			panic(fmt.Sprintf("wire: schema %s declares %s twice", name, f.Name))
		}
		if _, ok := s.byNum[f.Number]; ok {
			panic(fmt.Sprintf("wire: schema %s reuses field number %d", name, f.Number))
		}
		if f.Kind == KindMessage && f.Schema == nil {
			panic(fmt.Sprintf("wire: schema %s field %s has no message schema", name, f.Name))
		}
		if f.Label == Keyed && f.Kind != KindString {
			panic(fmt.Sprintf("wire: schema %s keyed field %s must be string-valued", name, f.Name))
		}
		s.fields = append(s.fields, &f)
		s.byName[f.Name] = &f
		s.byNum[f.Number] = &f
	}
	return s
}

// Fields returns the declarations in declaration order.
func (s *Schema) Fields() []*Field { return s.fields }

// Field looks up a declaration by plain-object name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// FieldByNumber looks up a declaration by wire number.
func (s *Schema) FieldByNumber(n uint32) (*Field, bool) {
	f, ok := s.byNum[n]
	return f, ok
}

func (s *Schema) String() string { return s.Name }

// Field constructors.

func String(n uint32, name string) Field { return Field{Number: n, Name: name, Kind: KindString} }
func Int64(n uint32, name string) Field  { return Field{Number: n, Name: name, Kind: KindInt64} }
func Int32(n uint32, name string) Field  { return Field{Number: n, Name: name, Kind: KindInt32} }
func Enum(n uint32, name string) Field   { return Field{Number: n, Name: name, Kind: KindEnum} }
func Bool(n uint32, name string) Field   { return Field{Number: n, Name: name, Kind: KindBool} }
func Bytes(n uint32, name string) Field  { return Field{Number: n, Name: name, Kind: KindBytes} }

// Nested declares an optional sub-message.
func Nested(n uint32, name string, s *Schema) Field {
	return Field{Number: n, Name: name, Kind: KindMessage, Schema: s}
}

// StringMap declares a keyed string-to-string field (labels, metadata).
func StringMap(n uint32, name string) Field {
	return Field{Number: n, Name: name, Kind: KindString, Label: Keyed}
}

// List turns a field declaration into its repeated form.
func List(f Field) Field {
	f.Label = Repeated
	return f
}

// Required marks a field as mandatory in plain objects.
func Required(f Field) Field {
	f.Required = true
	return f
}
