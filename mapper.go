// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/canonical/graphair/internal/mapper"
)

// RowBinder can be implemented by a record type to take over column binding
// from the reflection-based mapper. BindRow receives the result's ordered
// column names and the raw values of the current row; SQL NULL arrives as a
// nil value.
type RowBinder interface {
	BindRow(columns []string, values []any) error
}

// MapRow materializes the current cursor row into a new T. T's exported
// settable fields are matched against the result columns through the shared
// field-binding cache; columns with no match are dropped silently.
func MapRow[T any](rows *sql.Rows) (T, error) {
	var out T
	cols, err := rows.Columns()
	if err != nil {
		return out, err
	}

	if _, ok := any(&out).(RowBinder); ok {
		values, err := rawRow(rows, len(cols))
		if err != nil {
			return out, err
		}
		err = any(&out).(RowBinder).BindRow(cols, values)
		return out, err
	}

	bs, err := mapper.ForType(reflect.TypeOf(out), cols)
	if err != nil {
		return out, err
	}
	rv, err := bs.ScanRow(rows)
	if err != nil {
		return out, err
	}
	return rv.Interface().(T), nil
}

func rawRow(rows *sql.Rows, n int) ([]any, error) {
	dest := make([]any, n)
	for i := range dest {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	values := make([]any, n)
	for i := range dest {
		values[i] = *(dest[i].(*any))
	}
	return values, nil
}

// ForEachRow drives the cursor to exhaustion, materializing each row into a
// T and passing it to fn. Iteration stops on the first error from fn.
func ForEachRow[T any](rows *sql.Rows, fn func(T) error) error {
	for rows.Next() {
		v, err := MapRow[T](rows)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// AllRows materializes every remaining row of the cursor into a slice of T.
func AllRows[T any](rows *sql.Rows) ([]T, error) {
	var out []T
	err := ForEachRow(rows, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// Select executes the command and returns all result rows mapped to T.
func Select[T any](ctx context.Context, e *Executor) ([]T, error) {
	var out []T
	err := e.QueryContext(ctx, func(rows *sql.Rows) error {
		var err error
		out, err = AllRows[T](rows)
		return err
	})
	return out, err
}

// SelectIter executes the command and returns a lazy sequence of T, one per
// result row.
func SelectIter[T any](ctx context.Context, e *Executor) *Iter[T] {
	return Stream(ctx, e, MapRow[T])
}
