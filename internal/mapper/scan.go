// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package mapper

import (
	"database/sql"
	"fmt"
	"reflect"
)

// ScanRow materializes the current cursor row into a new value of the binding
// set's type. Columns without a binding are read and discarded. A SQL NULL
// leaves the bound field at its zero value.
func (bs *BindingSet) ScanRow(rows *sql.Rows) (reflect.Value, error) {
	dest := make([]any, len(bs.columns))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return reflect.Value{}, err
	}

	out := reflect.New(bs.typ).Elem()
	for _, b := range bs.bindings {
		v := *(dest[b.Column].(*any))
		if err := assign(out.Field(b.Field), v); err != nil {
			return reflect.Value{}, fmt.Errorf("cannot map column %q: %s", bs.columns[b.Column], err)
		}
	}
	return out, nil
}

// assign sets a field from a driver value, widening or converting where the
// driver's representation does not match the field type exactly.
func assign(field reflect.Value, v any) error {
	if v == nil {
		field.SetZero()
		return nil
	}

	val := reflect.ValueOf(v)
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// SQLite reports booleans as integers and text may arrive as []byte.
	switch {
	case field.Kind() == reflect.Bool && val.CanInt():
		field.SetBool(val.Int() != 0)
		return nil
	case field.Kind() == reflect.String:
		// Go converts an integer to the rune-string of its code point, not
		// a textual rendering, so only byte slices and strings convert.
		if b, ok := v.([]byte); ok {
			field.SetString(string(b))
			return nil
		}
		if val.Kind() == reflect.String {
			field.SetString(val.String())
			return nil
		}
		return fmt.Errorf("cannot assign %T to field of type %s", v, field.Type())
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to field of type %s", v, field.Type())
}
