package dto

import (
	"maps"
	"reflect"
	"slices"

	"pipeconsole/internal/wire"
)

// Project fills out, a pointer to a struct or to an Object, from m. Unset
// scalars read as zero values, unset lists and maps as empty non-nil values,
// and unset nested messages stay nil.
func Project(s *wire.Schema, m *wire.Message, out any) error {
	if m == nil {
		return mismatch(s.Name, s.Name, "nil message")
	}
	if m.Schema() != s {
		return mismatch(s.Name, s.Name, "message of schema %s", m.Schema().Name)
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return mismatch(s.Name, s.Name, "projection target must be a non-nil pointer, have %T", out)
	}
	target := rv.Elem()
	if target.Kind() == reflect.Pointer {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	return projectInto(s, m, target, s.Name)
}

// ProjectAs is Project for a freshly allocated T.
func ProjectAs[T any](s *wire.Schema, m *wire.Message) (*T, error) {
	out := new(T)
	if err := Project(s, m, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode decodes data as a message of s and projects it into out.
func Decode(s *wire.Schema, data []byte, out any) error {
	m, err := wire.Unmarshal(s, data)
	if err != nil {
		return err
	}
	return Project(s, m, out)
}

// ProjectObject renders m in the dynamic form. Scalars are always present,
// lists and maps are always present and nested messages only when set.
func ProjectObject(m *wire.Message) Object {
	s := m.Schema()
	obj := make(Object, len(s.Fields()))
	for _, f := range s.Fields() {
		raw, ok := m.Get(f.Name)
		switch f.Label {
		case wire.Keyed:
			mp := maps.Clone(m.GetMap(f.Name))
			if mp == nil {
				mp = map[string]string{}
			}
			obj[f.Name] = mp
		case wire.Repeated:
			items := m.GetList(f.Name)
			out := make([]any, 0, len(items))
			for _, item := range items {
				out = append(out, objectValue(item))
			}
			obj[f.Name] = out
		default:
			if ok {
				obj[f.Name] = objectValue(raw)
			} else if !f.IsMessage() {
				obj[f.Name] = zeroValue(f.Kind)
			}
		}
	}
	return obj
}

func objectValue(v any) any {
	switch x := v.(type) {
	case *wire.Message:
		return ProjectObject(x)
	case []byte:
		return slices.Clone(x)
	}
	return v
}

func zeroValue(k wire.Kind) any {
	switch k {
	case wire.KindString:
		return ""
	case wire.KindInt64:
		return int64(0)
	case wire.KindInt32, wire.KindEnum:
		return int32(0)
	case wire.KindBool:
		return false
	case wire.KindBytes:
		return []byte{}
	}
	return nil
}

func projectInto(s *wire.Schema, m *wire.Message, target reflect.Value, path string) error {
	if target.Type() == objectType {
		target.Set(reflect.ValueOf(ProjectObject(m)))
		return nil
	}
	if target.Kind() != reflect.Struct {
		return mismatch(s.Name, path, "cannot project into %s", target.Type())
	}
	info, err := structInfoFor(s, target.Type())
	if err != nil {
		return err
	}
	target.SetZero()
	for _, f := range s.Fields() {
		fv := target.FieldByIndex(info.index[f.Name])
		if err := projectField(s, m, f, fv, path+"."+f.Name); err != nil {
			return err
		}
	}
	return nil
}

func projectField(s *wire.Schema, m *wire.Message, f *wire.Field, fv reflect.Value, path string) error {
	switch f.Label {
	case wire.Keyed:
		if fv.Kind() != reflect.Map || fv.Type().Key().Kind() != reflect.String || fv.Type().Elem().Kind() != reflect.String {
			return mismatch(s.Name, path, "want string map, have %s", fv.Type())
		}
		src := m.GetMap(f.Name)
		mp := reflect.MakeMapWithSize(fv.Type(), len(src))
		for k, v := range src {
			mp.SetMapIndex(reflect.ValueOf(k).Convert(fv.Type().Key()), reflect.ValueOf(v).Convert(fv.Type().Elem()))
		}
		fv.Set(mp)
		return nil
	case wire.Repeated:
		if fv.Kind() != reflect.Slice {
			return mismatch(s.Name, path, "want list, have %s", fv.Type())
		}
		items := m.GetList(f.Name)
		list := reflect.MakeSlice(fv.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(s, f, item, list.Index(i), path); err != nil {
				return err
			}
		}
		fv.Set(list)
		return nil
	}
	raw, ok := m.Get(f.Name)
	if !ok {
		return nil
	}
	return assign(s, f, raw, fv, path)
}

func assign(s *wire.Schema, f *wire.Field, v any, dst reflect.Value, path string) error {
	if sub, ok := v.(*wire.Message); ok {
		switch dst.Kind() {
		case reflect.Pointer:
			p := reflect.New(dst.Type().Elem())
			if err := projectInto(f.Schema, sub, p.Elem(), path); err != nil {
				return err
			}
			dst.Set(p)
			return nil
		case reflect.Struct, reflect.Map:
			return projectInto(f.Schema, sub, dst, path)
		case reflect.Interface:
			dst.Set(reflect.ValueOf(ProjectObject(sub)))
			return nil
		}
		return mismatch(s.Name, path, "cannot hold message in %s", dst.Type())
	}
	src := reflect.ValueOf(v)
	if b, ok := v.([]byte); ok {
		src = reflect.ValueOf(slices.Clone(b))
	}
	if !compatible(f.Kind, dst.Kind()) || !src.Type().ConvertibleTo(dst.Type()) {
		return mismatch(s.Name, path, "cannot hold %s in %s", f.Kind, dst.Type())
	}
	dst.Set(src.Convert(dst.Type()))
	return nil
}

func compatible(k wire.Kind, dk reflect.Kind) bool {
	switch k {
	case wire.KindString:
		return dk == reflect.String
	case wire.KindInt64:
		return dk == reflect.Int64 || dk == reflect.Int
	case wire.KindInt32, wire.KindEnum:
		return dk == reflect.Int32
	case wire.KindBool:
		return dk == reflect.Bool
	case wire.KindBytes:
		return dk == reflect.Slice
	}
	return false
}
