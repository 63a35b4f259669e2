// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package params converts loosely typed parameter sources into sequences of
// typed, directional query parameters ready to be handed to database/sql.
package params

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction describes how the backend populates or consumes a parameter.
type Direction int

const (
	Input Direction = iota
	Output
	InputOutput
	ReturnValue
)

// String returns the direction name used in error messages.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case InputOutput:
		return "input/output"
	case ReturnValue:
		return "return value"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Kind is the closed set of scalar parameter types understood by the backend.
// Values of any other Go type are bound through KindString using their
// textual representation.
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindInt32
	KindByte
	KindFloat32
	KindFloat64
	KindBool
	KindChar
	KindTime
	KindDecimal
)

// Parameter is a single named query parameter. It is created when bound,
// consumed at execution, and mutated by the backend when its direction is not
// Input.
type Parameter struct {
	Name      string
	Value     any
	Direction Direction
	Kind      Kind

	// Size, Precision and Scale describe the declared store-side type of
	// the parameter. The database/sql named-argument interface carries no
	// type metadata, so they are informational until a driver-specific
	// binder consumes them.
	Size      int
	Precision int
	Scale     int

	// Null marks a parameter whose source value was a nil pointer to one of
	// the scalar kinds. The Kind still reports the underlying scalar type.
	Null bool

	// Dest receives the value written by the backend for Output, InputOutput
	// and ReturnValue parameters. It is nil until the parameter is attached
	// to an execution.
	Dest *any
}

// NamedArg converts the parameter into the database/sql named argument used
// at execution time. Non-input parameters are wrapped in sql.Out so the
// driver can write back into Dest.
func (p *Parameter) NamedArg() sql.NamedArg {
	if p.Direction == Input {
		if p.Null {
			return sql.Named(p.Name, nil)
		}
		return sql.Named(p.Name, p.Value)
	}
	if p.Dest == nil {
		p.Dest = new(any)
	}
	if p.Direction == InputOutput {
		*p.Dest = p.Value
	}
	return sql.Named(p.Name, sql.Out{Dest: p.Dest, In: p.Direction == InputOutput})
}

// KindOf maps a Go value to a parameter kind. The second return is false
// when the value falls outside the closed kind set and will be bound through
// the string fallback.
func KindOf(v any) (Kind, bool) {
	return kindOf(v)
}

// kindOf maps a Go value to a parameter kind. The switch is intentionally
// closed: anything outside it reports ok as false and is bound through the
// string fallback. A rune is indistinguishable from an int32 in Go, so
// KindChar is only ever produced for explicitly constructed parameters.
func kindOf(v any) (Kind, bool) {
	switch v.(type) {
	case int64, int:
		return KindInt64, true
	case int32, int16:
		return KindInt32, true
	case uint8:
		return KindByte, true
	case string:
		return KindString, true
	case float32:
		return KindFloat32, true
	case float64:
		return KindFloat64, true
	case bool:
		return KindBool, true
	case time.Time:
		return KindTime, true
	case decimal.Decimal:
		return KindDecimal, true
	}
	return KindString, false
}
