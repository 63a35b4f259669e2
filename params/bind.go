// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package params

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Bind produces one Parameter per entry of the source. The source may be nil
// (producing no parameters), a map with string keys, or a struct (or pointer
// to struct) whose exported fields are enumerated by name.
//
// Map entries are emitted in sorted key order so that generated query text is
// deterministic. Struct fields are emitted in declaration order. A field
// carrying a "db" tag is bound under the tag name.
func Bind(src any) ([]*Parameter, error) {
	if src == nil {
		return nil, nil
	}
	v := reflect.ValueOf(src)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		return bindMap(v)
	case reflect.Struct:
		return bindStruct(v)
	}
	return nil, fmt.Errorf("cannot bind parameters from %s, need map or struct", v.Kind())
}

func bindMap(v reflect.Value) ([]*Parameter, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot bind parameters from map with %s keys, need string keys", v.Type().Key().Kind())
	}
	names := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		names = append(names, k.String())
	}
	sort.Strings(names)

	ps := make([]*Parameter, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("cannot bind parameter with empty name")
		}
		val := v.MapIndex(reflect.ValueOf(name))
		ps = append(ps, newParameter(name, val.Interface()))
	}
	return ps, nil
}

func bindStruct(v reflect.Value) ([]*Parameter, error) {
	fields := structFields(v.Type())
	ps := make([]*Parameter, 0, len(fields))
	for _, f := range fields {
		ps = append(ps, newParameter(f.name, v.Field(f.index).Interface()))
	}
	return ps, nil
}

// New builds an input parameter from a raw value, applying the same kind
// dispatch and null unwrap as Bind.
func New(name string, value any) *Parameter {
	return newParameter(name, value)
}

// newParameter builds an input parameter from a raw value. Nil pointers to a
// scalar kind produce a null parameter of that kind; values outside the
// closed kind set fall back to their textual representation.
func newParameter(name string, value any) *Parameter {
	p := &Parameter{Name: name, Direction: Input}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			elem := reflect.Zero(rv.Type().Elem()).Interface()
			p.Kind, _ = kindOf(elem)
			p.Null = true
			return p
		}
		value = rv.Elem().Interface()
	}
	if value == nil {
		p.Kind = KindString
		p.Null = true
		return p
	}

	kind, ok := kindOf(value)
	p.Kind = kind
	if ok {
		p.Value = value
	} else {
		p.Value = fmt.Sprintf("%v", value)
	}
	return p
}

// fieldInfo records how to reach one bindable field of a struct type.
type fieldInfo struct {
	name  string
	index int
}

// fieldCache caches the bindable fields of each struct type across calls.
// Population races are tolerated, the computed value is identical.
var fieldCache sync.Map // reflect.Type -> []fieldInfo

func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("db"); ok {
			// Options such as "omitempty" are not meaningful for parameters.
			tag, _, _ = strings.Cut(tag, ",")
			if tag != "" && tag != "-" {
				name = tag
			}
		}
		fields = append(fields, fieldInfo{name: name, index: i})
	}
	fieldCache.Store(t, fields)
	return fields
}
