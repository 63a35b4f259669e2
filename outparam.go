// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"fmt"
	"reflect"

	"github.com/canonical/graphair/params"
)

// OutParam is a typed handle on an output, input/output or return-value
// parameter. Its value is written by the store during execution and becomes
// readable once the execution has completed.
type OutParam[T any] struct {
	e *Executor
	p *params.Parameter
}

// Out binds an output parameter on the executor and returns its handle.
func Out[T any](e *Executor, name string) *OutParam[T] {
	return addOut[T](e, name, nil, params.Output)
}

// InOut binds an input/output parameter carrying an initial value.
func InOut[T any](e *Executor, name string, value T) *OutParam[T] {
	return addOut[T](e, name, value, params.InputOutput)
}

// Return binds the routine return-value parameter.
func Return[T any](e *Executor) *OutParam[T] {
	return addOut[T](e, "return_value", nil, params.ReturnValue)
}

func addOut[T any](e *Executor, name string, value any, dir params.Direction) *OutParam[T] {
	var zero T
	kind, _ := params.KindOf(zero)
	p := &params.Parameter{Name: name, Value: value, Direction: dir, Kind: kind, Dest: new(any)}
	e.RawParam(p)
	return &OutParam[T]{e: e, p: p}
}

// Value returns the parameter value written by the store. It fails if the
// execution has not yet completed, if the value cannot be converted to T, or
// if the store wrote NULL and T cannot represent it. A NULL written into a
// nil-able T yields the zero value of T.
func (o *OutParam[T]) Value() (T, error) {
	var zero T
	if !o.e.isFinished() {
		return zero, fmt.Errorf("graphair: cannot read %s parameter %q before execution completes", o.p.Direction, o.p.Name)
	}
	raw := *o.p.Dest
	if raw == nil {
		if !nillable[T]() {
			return zero, fmt.Errorf("graphair: %s parameter %q is null, cannot be read as %T", o.p.Direction, o.p.Name, zero)
		}
		return zero, nil
	}
	v, err := coerce[T](raw)
	if err != nil {
		return zero, fmt.Errorf("graphair: cannot read %s parameter %q: %s", o.p.Direction, o.p.Name, err)
	}
	return v, nil
}

// nillable reports whether the zero value of T can stand in for SQL NULL.
func nillable[T any]() bool {
	t := reflect.TypeOf((*T)(nil)).Elem()
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// coerce converts a non-nil driver value to T, widening numeric types and
// decoding byte slices into strings where needed.
func coerce[T any](v any) (T, error) {
	var zero T
	if t, ok := v.(T); ok {
		return t, nil
	}
	tt := reflect.TypeOf((*T)(nil)).Elem()
	if tt.Kind() == reflect.Interface {
		// T is an interface the value does not implement.
		return zero, fmt.Errorf("cannot convert %T to %s", v, tt)
	}
	rv := reflect.ValueOf(v)
	switch {
	case tt.Kind() == reflect.Bool && rv.CanInt():
		return reflect.ValueOf(rv.Int() != 0).Convert(tt).Interface().(T), nil
	case tt.Kind() == reflect.String:
		// Go converts an integer to the rune-string of its code point, not
		// a textual rendering, so only byte slices and strings convert.
		if b, ok := v.([]byte); ok {
			return reflect.ValueOf(string(b)).Convert(tt).Interface().(T), nil
		}
		if rv.Kind() == reflect.String {
			return rv.Convert(tt).Interface().(T), nil
		}
		return zero, fmt.Errorf("cannot convert %T to %s", v, tt)
	}
	if rv.Type().ConvertibleTo(tt) {
		return rv.Convert(tt).Interface().(T), nil
	}
	return zero, fmt.Errorf("cannot convert %T to %s", v, tt)
}
