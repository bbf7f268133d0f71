// Package dto converts between plain objects and wire messages.
//
// A plain object is either a Go struct whose json tags name the schema
// fields, or a dynamic Object. Conversion is driven entirely by the
// wire.Schema, so one pair of functions serves every message type.
package dto

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"reflect"

	"pipeconsole/internal/wire"
)

// Object is the dynamic plain-object form keyed by field name.
type Object = map[string]any

// Marshal builds a wire message of schema s from plain, a struct, a pointer
// to struct, or an Object. Absent optional nested fields stay unset.
func Marshal(s *wire.Schema, plain any) (*wire.Message, error) {
	if plain == nil {
		return nil, mismatch(s.Name, s.Name, "nil plain object")
	}
	return marshalAny(s, reflect.ValueOf(plain), s.Name)
}

// Encode marshals plain and encodes the resulting message.
func Encode(s *wire.Schema, plain any) ([]byte, error) {
	m, err := Marshal(s, plain)
	if err != nil {
		return nil, err
	}
	return wire.Marshal(m)
}

func marshalAny(s *wire.Schema, rv reflect.Value, path string) (*wire.Message, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, mismatch(s.Name, path, "nil plain object")
		}
		if rv.Type() == messagePtrType {
			return adoptMessage(s, rv.Interface().(*wire.Message), path)
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.Struct:
		return marshalStruct(s, rv, path)
	case rv.Type() == objectType:
		return marshalObject(s, rv.Interface().(Object), path)
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		obj := make(Object, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return marshalObject(s, obj, path)
	default:
		return nil, mismatch(s.Name, path, "cannot marshal %s as %s", rv.Type(), s.Name)
	}
}

func adoptMessage(s *wire.Schema, m *wire.Message, path string) (*wire.Message, error) {
	if m.Schema() != s {
		return nil, mismatch(s.Name, path, "message of schema %s", m.Schema().Name)
	}
	return m, nil
}

var (
	objectType     = reflect.TypeOf(Object(nil))
	messagePtrType = reflect.TypeOf((*wire.Message)(nil))
)

func marshalStruct(s *wire.Schema, rv reflect.Value, path string) (*wire.Message, error) {
	info, err := structInfoFor(s, rv.Type())
	if err != nil {
		return nil, err
	}
	msg := wire.NewMessage(s)
	for _, f := range s.Fields() {
		fv := rv.FieldByIndex(info.index[f.Name])
		if err := setTyped(msg, f, fv, path+"."+f.Name); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func setTyped(msg *wire.Message, f *wire.Field, fv reflect.Value, path string) error {
	s := msg.Schema()
	switch f.Label {
	case wire.Keyed:
		if fv.Kind() != reflect.Map || fv.Type().Key().Kind() != reflect.String || fv.Type().Elem().Kind() != reflect.String {
			return mismatch(s.Name, path, "want string map, have %s", fv.Type())
		}
		if fv.IsNil() {
			return nil
		}
		return setOrMismatch(msg, f, stringMap(fv), path)
	case wire.Repeated:
		if fv.Kind() != reflect.Slice {
			return mismatch(s.Name, path, "want list, have %s", fv.Type())
		}
		if fv.IsNil() {
			return nil
		}
		items := make([]any, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			v, err := typedElem(s, f, fv.Index(i), path)
			if err != nil {
				return err
			}
			items = append(items, v)
		}
		return setOrMismatch(msg, f, items, path)
	}
	if f.IsMessage() {
		if isNilRef(fv) {
			if f.Required {
				return &ShapeMismatch{Schema: s.Name, Path: path, Reason: "required nested field is nil", Err: ErrAbsentRequiredNesting}
			}
			return nil
		}
		sub, err := marshalAny(f.Schema, fv, path)
		if err != nil {
			return err
		}
		return setOrMismatch(msg, f, sub, path)
	}
	v, err := typedScalar(s, f, fv, path)
	if err != nil {
		return err
	}
	return setOrMismatch(msg, f, v, path)
}

func typedElem(s *wire.Schema, f *wire.Field, ev reflect.Value, path string) (any, error) {
	if !f.IsMessage() {
		return typedScalar(s, f, ev, path)
	}
	if isNilRef(ev) {
		return nil, mismatch(s.Name, path, "nil list element")
	}
	return marshalAny(f.Schema, ev, path)
}

func isNilRef(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return v.IsNil()
	}
	return false
}

func typedScalar(s *wire.Schema, f *wire.Field, fv reflect.Value, path string) (any, error) {
	switch f.Kind {
	case wire.KindString:
		if fv.Kind() == reflect.String {
			return fv.String(), nil
		}
	case wire.KindInt64:
		switch fv.Kind() {
		case reflect.Int, reflect.Int64, reflect.Int32:
			return fv.Int(), nil
		}
	case wire.KindInt32, wire.KindEnum:
		if fv.Kind() == reflect.Int32 {
			return int32(fv.Int()), nil
		}
	case wire.KindBool:
		if fv.Kind() == reflect.Bool {
			return fv.Bool(), nil
		}
	case wire.KindBytes:
		if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.Uint8 {
			return fv.Bytes(), nil
		}
	}
	return nil, mismatch(s.Name, path, "want %s, have %s", f.Kind, fv.Type())
}

func stringMap(fv reflect.Value) map[string]string {
	out := make(map[string]string, fv.Len())
	iter := fv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().String()
	}
	return out
}

func setOrMismatch(msg *wire.Message, f *wire.Field, v any, path string) error {
	if err := msg.Set(f.Name, v); err != nil {
		return &ShapeMismatch{Schema: msg.Schema().Name, Path: path, Reason: "rejected by message", Err: err}
	}
	return nil
}

func marshalObject(s *wire.Schema, obj Object, path string) (*wire.Message, error) {
	for k := range obj {
		if _, ok := s.Field(k); !ok {
			return nil, mismatch(s.Name, path+"."+k, "unknown field")
		}
	}
	msg := wire.NewMessage(s)
	for _, f := range s.Fields() {
		fpath := path + "." + f.Name
		v, ok := obj[f.Name]
		if !ok || v == nil {
			if f.Required {
				if f.IsMessage() {
					return nil, &ShapeMismatch{Schema: s.Name, Path: fpath, Reason: "required nested field is absent", Err: ErrAbsentRequiredNesting}
				}
				return nil, mismatch(s.Name, fpath, "missing required field")
			}
			continue
		}
		if err := setDynamic(msg, f, v, fpath); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func setDynamic(msg *wire.Message, f *wire.Field, v any, path string) error {
	s := msg.Schema()
	switch f.Label {
	case wire.Keyed:
		mp, err := dynamicStringMap(s, v, path)
		if err != nil {
			return err
		}
		return setOrMismatch(msg, f, mp, path)
	case wire.Repeated:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return mismatch(s.Name, path, "want list, have %T", v)
		}
		items := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := dynamicValue(s, f, rv.Index(i).Interface(), path)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return setOrMismatch(msg, f, items, path)
	}
	item, err := dynamicValue(s, f, v, path)
	if err != nil {
		return err
	}
	return setOrMismatch(msg, f, item, path)
}

// dynamicStringMap accepts a map or the list-of-pairs form of a keyed field.
func dynamicStringMap(s *wire.Schema, v any, path string) (map[string]string, error) {
	switch mp := v.(type) {
	case map[string]string:
		return mp, nil
	case map[string]any:
		out := make(map[string]string, len(mp))
		for k, e := range mp {
			str, ok := e.(string)
			if !ok {
				return nil, mismatch(s.Name, path+"."+k, "want string value, have %T", e)
			}
			out[k] = str
		}
		return out, nil
	case [][]string:
		out := make(map[string]string, len(mp))
		for _, pair := range mp {
			if len(pair) != 2 {
				return nil, mismatch(s.Name, path, "want key/value pair, have %d elements", len(pair))
			}
			out[pair[0]] = pair[1]
		}
		return out, nil
	case []any:
		out := make(map[string]string, len(mp))
		for _, p := range mp {
			pair, ok := p.([]any)
			if !ok || len(pair) != 2 {
				return nil, mismatch(s.Name, path, "want key/value pair, have %v", p)
			}
			k, kok := pair[0].(string)
			val, vok := pair[1].(string)
			if !kok || !vok {
				return nil, mismatch(s.Name, path, "want string pair, have %v", p)
			}
			out[k] = val
		}
		return out, nil
	}
	return nil, mismatch(s.Name, path, "want string map, have %T", v)
}

func dynamicValue(s *wire.Schema, f *wire.Field, v any, path string) (any, error) {
	if v == nil {
		return nil, mismatch(s.Name, path, "nil value")
	}
	switch f.Kind {
	case wire.KindString:
		if str, ok := v.(string); ok {
			return str, nil
		}
	case wire.KindInt64:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case wire.KindInt32, wire.KindEnum:
		if n, ok := toInt64(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, mismatch(s.Name, path, "value %d overflows int32", n)
			}
			return int32(n), nil
		}
	case wire.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case wire.KindBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			raw, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, mismatch(s.Name, path, "bytes value is not base64")
			}
			return raw, nil
		}
	case wire.KindMessage:
		return marshalAny(f.Schema, reflect.ValueOf(v), path)
	}
	return nil, mismatch(s.Name, path, "want %s, have %T", f.Kind, v)
}

// toInt64 accepts any Go integer, an integral float (decoded JSON) or a
// json.Number.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return toInt64(float64(n))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
