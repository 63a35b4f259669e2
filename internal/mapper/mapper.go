// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package mapper binds forward-only result cursors to struct values. The
// mapping from a result's column sequence to the settable fields of a target
// type is computed once per (type, column sequence) pair and cached process
// wide, so repeated executions of the same query shape never pay for type
// introspection twice.
package mapper

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"strings"
	"sync"
)

// Hash returns the FNV-1a hash of a single column name.
func Hash(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// Key combines an ordered column-name sequence into a cache key. The combine
// is order sensitive: seed 17, then key = key*31 + Hash(name) for each name
// in turn, with wrapping arithmetic.
func Key(columns []string) uint64 {
	key := uint64(17)
	for _, c := range columns {
		key = key*31 + Hash(c)
	}
	return key
}

// Binding connects one result column ordinal to one field of the target type.
type Binding struct {
	// Column is the ordinal of the column in the result.
	Column int
	// Field is the index of the matched field for reflect.Value.Field.
	Field int
}

// BindingSet is the ordered field-binding sequence for one (type, column
// sequence) pair. Once cached it is immutable and shared by every execution
// presenting the same column sequence for the same type.
type BindingSet struct {
	typ      reflect.Type
	columns  []string
	bindings []Binding
}

// Bindings exposes the resolved bindings, mainly for tests.
func (bs *BindingSet) Bindings() []Binding {
	return bs.bindings
}

type cacheKey struct {
	typ  reflect.Type
	hash uint64
}

// bindingCache is append-only and shared across all executions. Concurrent
// population by racing callers is tolerated under first-writer-wins.
var bindingCache sync.Map // cacheKey -> *BindingSet

// ForType returns the binding set for the given struct type and ordered
// column sequence, computing and caching it on first use.
//
// The cache key is a hash of the column names, so two distinct sequences can
// collide. A hit whose stored sequence differs from the presented one is
// treated as a miss and recomputed rather than silently reusing the wrong
// bindings.
func ForType(t reflect.Type, columns []string) (*BindingSet, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot map rows into interface type, need struct")
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot map rows into %s, need struct", t.Kind())
	}
	key := cacheKey{typ: t, hash: Key(columns)}
	if cached, ok := bindingCache.Load(key); ok {
		bs := cached.(*BindingSet)
		if equalColumns(bs.columns, columns) {
			return bs, nil
		}
	}
	bs := build(t, columns)
	if actual, loaded := bindingCache.LoadOrStore(key, bs); loaded {
		cached := actual.(*BindingSet)
		if equalColumns(cached.columns, columns) {
			return cached, nil
		}
		// Key collision with a different sequence: use the freshly computed
		// set and leave the first writer in place.
	}
	return bs, nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// build matches each column against the exported settable fields of t. A
// column matches a field when the field's "db" tag equals the column name, or
// when the two compare equal case-insensitively after separator characters
// are removed. Unmatched columns are dropped, not an error.
func build(t reflect.Type, columns []string) *BindingSet {
	bs := &BindingSet{typ: t, columns: append([]string(nil), columns...)}

	tagged := map[string]int{}
	named := map[string]int{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, ok := f.Tag.Lookup("db"); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag != "" && tag != "-" {
				tagged[tag] = i
			}
		}
		named[normalize(f.Name)] = i
	}

	for col, name := range columns {
		if idx, ok := tagged[name]; ok {
			bs.bindings = append(bs.bindings, Binding{Column: col, Field: idx})
			continue
		}
		if idx, ok := named[normalize(name)]; ok {
			bs.bindings = append(bs.bindings, Binding{Column: col, Field: idx})
		}
	}
	return bs
}

// normalize strips separator characters and lowercases, so that column
// "height_cm" matches field "HeightCm".
func normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '_', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
