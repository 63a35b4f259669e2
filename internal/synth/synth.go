// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package synth builds INSERT, UPDATE, DELETE and SELECT text for graph node
// and edge tables. It is pure text assembly: no identifier sanitization is
// performed, table and property names are trusted input.
//
// The reserved system columns node_id, edge_id, from_id and to_id are
// recognized by the underlying engine's graph-traversal syntax and are
// prefixed with the $ sigil wherever they appear in generated text.
package synth

import "strings"

// Sigil marks a reserved system column in generated query text.
const Sigil = "$"

// reserved lists the system column names in identifier-resolution priority
// order.
var reserved = []string{"node_id", "edge_id", "from_id", "to_id"}

// Prop is one named property of a parameter bag. A nil Value means the
// property was explicitly null.
type Prop struct {
	Name  string
	Value any
}

// IsReserved reports whether name is one of the system columns.
func IsReserved(name string) bool {
	for _, r := range reserved {
		if name == r {
			return true
		}
	}
	return false
}

// Column returns the column reference for a property name, sigil-prefixed
// when the name is reserved.
func Column(name string) string {
	if IsReserved(name) {
		return Sigil + name
	}
	return name
}

// NodeID scans the properties in the fixed priority order node_id, edge_id,
// from_id, to_id and returns the first present value.
func NodeID(props []Prop) (any, bool) {
	for _, r := range reserved {
		for _, p := range props {
			if p.Name == r && p.Value != nil {
				return p.Value, true
			}
		}
	}
	return nil, false
}

// NonReserved returns the properties that are not system columns.
func NonReserved(props []Prop) []Prop {
	var out []Prop
	for _, p := range props {
		if !IsReserved(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// NodeIDQuery builds the scalar sub-query used to resolve a node identifier
// when the parameter bag does not carry one. The where clause is built from
// the non-reserved properties, which are returned for binding.
func NodeIDQuery(table string, props []Prop) (string, []Prop) {
	keys := NonReserved(props)
	return "SELECT " + Sigil + "node_id FROM " + table + Where(keys), keys
}

// predicate renders a single comparison. Null-valued properties become IS
// NULL tests rather than parameter comparisons.
func predicate(p Prop) string {
	if p.Value == nil {
		return Column(p.Name) + " IS NULL"
	}
	return Column(p.Name) + " = @" + p.Name
}

// Predicates renders one predicate per property, joined with AND.
func Predicates(props []Prop) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, predicate(p))
	}
	return strings.Join(parts, " AND ")
}

// Where renders a full where clause with a leading space, or the empty
// string when there are no properties.
func Where(props []Prop) string {
	if len(props) == 0 {
		return ""
	}
	return " WHERE " + Predicates(props)
}

// EdgeWhere combines the endpoint predicates with the caller-supplied
// property predicates. Absent components are omitted; an edge with neither
// endpoints nor properties yields the empty string.
func EdgeWhere(hasFrom, hasTo bool, props []Prop) string {
	var parts []string
	if hasFrom {
		parts = append(parts, Sigil+"from_id = @from_id")
	}
	if hasTo {
		parts = append(parts, Sigil+"to_id = @to_id")
	}
	if len(props) > 0 {
		parts = append(parts, Predicates(props))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

// Set renders an UPDATE assignment list. Null-valued properties are skipped
// rather than assigned, which is an intentional convention of the layer.
func Set(props []Prop) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		if p.Value == nil {
			continue
		}
		parts = append(parts, Column(p.Name)+" = @"+p.Name)
	}
	return strings.Join(parts, ", ")
}

// InsertNode builds an INSERT for a node table with an explicit column list
// in property enumeration order and matching parameter placeholders.
func InsertNode(table string, props []Prop) string {
	cols := make([]string, 0, len(props))
	vals := make([]string, 0, len(props))
	for _, p := range props {
		cols = append(cols, Column(p.Name))
		vals = append(vals, "@"+p.Name)
	}
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

// InsertEdge builds an INSERT for an edge table. The resolved endpoint
// identifiers are bound as the from_id and to_id parameters, never spliced
// into the text as literals.
func InsertEdge(table string, props []Prop) string {
	cols := []string{Sigil + "from_id", Sigil + "to_id"}
	vals := []string{"@from_id", "@to_id"}
	for _, p := range props {
		cols = append(cols, Column(p.Name))
		vals = append(vals, "@"+p.Name)
	}
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

// UpdateNode builds an UPDATE from a SET bag and a WHERE bag.
func UpdateNode(table string, set, where []Prop) string {
	return "UPDATE " + table + " SET " + Set(set) + Where(where)
}

// DeleteNode builds a DELETE from a WHERE bag.
func DeleteNode(table string, where []Prop) string {
	return "DELETE FROM " + table + Where(where)
}

// UpdateEdge builds an UPDATE for an edge table keyed by both endpoints.
func UpdateEdge(table string, set, where []Prop) string {
	return "UPDATE " + table + " SET " + Set(set) + EdgeWhere(true, true, where)
}

// DeleteEdge builds a DELETE for an edge table keyed by both endpoints.
func DeleteEdge(table string, where []Prop) string {
	return "DELETE FROM " + table + EdgeWhere(true, true, where)
}

// Exists builds the existence probe for a table and where bag. The caller
// compares the resulting count against zero.
func Exists(table string, where []Prop) string {
	return "SELECT COUNT(*) FROM (SELECT TOP 1 * FROM " + table + Where(where) + ") d"
}

// ExistsEdge builds the existence probe for an edge table, keyed by whatever
// combination of endpoints and properties is present.
func ExistsEdge(table string, hasFrom, hasTo bool, props []Prop) string {
	return "SELECT COUNT(*) FROM (SELECT TOP 1 * FROM " + table + EdgeWhere(hasFrom, hasTo, props) + ") d"
}

// Match renders the graph-traversal predicate for a from-table, edge-table,
// to-table triple: MATCH(a-(e)->b).
func Match(from, edge, to string) string {
	return "MATCH(" + from + "-(" + edge + ")->" + to + ")"
}

// SelectConnected builds a SELECT over a MATCH join returning the columns of
// the destination node table, filtered by properties of the source node.
func SelectConnected(fromTable, edgeTable, toTable string, fromProps []Prop) string {
	q := "SELECT " + toTable + ".* FROM " + fromTable + ", " + edgeTable + ", " + toTable +
		" WHERE " + Match(fromTable, edgeTable, toTable)
	if len(fromProps) > 0 {
		qualified := make([]string, 0, len(fromProps))
		for _, p := range fromProps {
			if p.Value == nil {
				qualified = append(qualified, fromTable+"."+Column(p.Name)+" IS NULL")
			} else {
				qualified = append(qualified, fromTable+"."+Column(p.Name)+" = @"+p.Name)
			}
		}
		q += " AND " + strings.Join(qualified, " AND ")
	}
	return q
}
