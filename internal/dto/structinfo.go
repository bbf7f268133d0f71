package dto

import (
	"reflect"
	"strings"
	"sync"

	"pipeconsole/internal/wire"
)

type structKey struct {
	schema *wire.Schema
	typ    reflect.Type
}

type structInfo struct {
	index map[string][]int
	err   error
}

var structCache sync.Map // structKey -> *structInfo

// structInfoFor matches the exported fields of t against s by json name. The
// shape is closed in both directions: every schema field needs a struct
// field and every named struct field must be declared.
func structInfoFor(s *wire.Schema, t reflect.Type) (*structInfo, error) {
	key := structKey{schema: s, typ: t}
	if v, ok := structCache.Load(key); ok {
		info := v.(*structInfo)
		return info, info.err
	}
	info := buildStructInfo(s, t)
	v, _ := structCache.LoadOrStore(key, info)
	info = v.(*structInfo)
	return info, info.err
}

func buildStructInfo(s *wire.Schema, t reflect.Type) *structInfo {
	info := &structInfo{index: make(map[string][]int, len(s.Fields()))}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := jsonName(sf)
		if name == "-" {
			continue
		}
		if _, ok := s.Field(name); !ok {
			info.err = mismatch(s.Name, s.Name+"."+name, "field not declared by schema (type %s)", t)
			return info
		}
		if _, dup := info.index[name]; dup {
			info.err = mismatch(s.Name, s.Name+"."+name, "declared twice by type %s", t)
			return info
		}
		info.index[name] = sf.Index
	}
	for _, f := range s.Fields() {
		if _, ok := info.index[f.Name]; !ok {
			info.err = mismatch(s.Name, s.Name+"."+f.Name, "type %s has no field for it", t)
			return info
		}
	}
	return info
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}
