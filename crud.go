// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/canonical/graphair/internal/synth"
	"github.com/canonical/graphair/params"
)

// NodeRef identifies a node by its table and a parameter bag of key
// properties. The identifier is resolved lazily: a system column present in
// the bag wins, otherwise a scalar sub-query against the table is issued.
type NodeRef struct {
	Table string
	Keys  any
}

// Store is the CRUD facade over graph node and edge tables. It composes the
// query synthesizer, the parameter binder and the executor; read paths flow
// through the result mapper.
//
// Store takes ownership of the DB passed to [NewStore] and releases it on
// [Store.Close].
type Store struct {
	db      *DB
	tx      *TX
	log     *slog.Logger
	timeout time.Duration
	ownsDB  bool
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithLogger enables query tracing at debug level.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithTimeout caps each command issued by the store.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.timeout = d }
}

// NewStore creates a Store owning the given DB.
func NewStore(db *DB, opts ...StoreOption) *Store {
	s := &Store{db: db, ownsDB: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithTX returns a copy of the store whose commands run on the transaction.
// The copy does not own the underlying DB and its Close releases nothing.
func (s *Store) WithTX(tx *TX) *Store {
	c := *s
	c.tx = tx
	c.ownsDB = false
	return &c
}

// Close releases the resources the store owns.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.sqldb.Close()
}

// command builds an executor for query on whichever substrate the store is
// bound to.
func (s *Store) command(query string) *Executor {
	var e *Executor
	if s.tx != nil {
		e = s.tx.Command(query)
	} else {
		e = s.db.Command(query)
	}
	if s.timeout > 0 {
		e.Timeout(s.timeout)
	}
	return e
}

func (s *Store) trace(ctx context.Context, query string, nparams int) {
	if s.log != nil {
		s.log.DebugContext(ctx, "executing command", "query", query, "params", nparams)
	}
}

// bagProps binds a parameter bag and presents it to the synthesizer. The
// returned parameters parallel the props; null-valued entries carry no
// parameter value and must not be bound against predicates rendered as IS
// NULL.
func bagProps(bag any) ([]synth.Prop, []*params.Parameter, error) {
	ps, err := params.Bind(bag)
	if err != nil {
		return nil, nil, err
	}
	props := make([]synth.Prop, 0, len(ps))
	for _, p := range ps {
		prop := synth.Prop{Name: p.Name}
		if !p.Null {
			prop.Value = p.Value
		}
		props = append(props, prop)
	}
	return props, ps, nil
}

// bindNonNull attaches the parameters whose values appear as placeholders in
// the generated text. Null-valued properties render as IS NULL predicates,
// or are skipped in SET lists, so their parameters are dropped.
func bindNonNull(e *Executor, ps []*params.Parameter) {
	for _, p := range ps {
		if !p.Null {
			e.RawParam(p)
		}
	}
}

func bindAll(e *Executor, ps []*params.Parameter) {
	for _, p := range ps {
		e.RawParam(p)
	}
}

// Command builds an executor for a free-form command on the store's
// substrate, with the store's timeout applied. It is the escape hatch for DDL
// and queries the synthesizer does not cover.
func (s *Store) Command(query string) *Executor {
	return s.command(query)
}

// NodeExists reports whether a row matching the parameter bag exists in the
// node table. An empty bag short-circuits to false without touching the
// store.
func (s *Store) NodeExists(ctx context.Context, table string, bag any) (bool, error) {
	props, ps, err := bagProps(bag)
	if err != nil {
		return false, err
	}
	if len(props) == 0 {
		return false, nil
	}
	query := synth.Exists(table, props)
	s.trace(ctx, query, len(ps))
	e := s.command(query)
	bindNonNull(e, ps)
	count, err := Scalar[int64](ctx, e)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertNode inserts one node row built from the parameter bag and returns
// the affected-row count. A nil or empty bag is a no-op returning zero.
func (s *Store) InsertNode(ctx context.Context, table string, bag any) (int64, error) {
	props, ps, err := bagProps(bag)
	if err != nil {
		return 0, err
	}
	if len(props) == 0 {
		return 0, nil
	}
	query := synth.InsertNode(table, props)
	s.trace(ctx, query, len(ps))
	e := s.command(query)
	bindAll(e, ps)
	return e.ExecContext(ctx)
}

// UpdateNode updates node rows matched by the where bag with the non-null
// values of the set bag. An empty set bag is a no-op returning zero.
func (s *Store) UpdateNode(ctx context.Context, table string, set, where any) (int64, error) {
	setProps, setPs, err := bagProps(set)
	if err != nil {
		return 0, err
	}
	if nonNull(setProps) == 0 {
		return 0, nil
	}
	whereProps, wherePs, err := bagProps(where)
	if err != nil {
		return 0, err
	}
	query := synth.UpdateNode(table, setProps, whereProps)
	s.trace(ctx, query, len(setPs)+len(wherePs))
	e := s.command(query)
	bindNonNull(e, setPs)
	bindNonNull(e, wherePs)
	return e.ExecContext(ctx)
}

// DeleteNode deletes node rows matched by the where bag. An empty bag is a
// no-op returning zero.
func (s *Store) DeleteNode(ctx context.Context, table string, where any) (int64, error) {
	props, ps, err := bagProps(where)
	if err != nil {
		return 0, err
	}
	if len(props) == 0 {
		return 0, nil
	}
	query := synth.DeleteNode(table, props)
	s.trace(ctx, query, len(ps))
	e := s.command(query)
	bindNonNull(e, ps)
	return e.ExecContext(ctx)
}

// SelectNodes returns all node rows matched by the parameter bag, mapped to
// T. An empty bag yields nil without issuing a command.
func SelectNodes[T any](ctx context.Context, s *Store, table string, bag any) ([]T, error) {
	props, ps, err := bagProps(bag)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}
	query := "SELECT * FROM " + table + synth.Where(props)
	s.trace(ctx, query, len(ps))
	e := s.command(query)
	bindNonNull(e, ps)
	return Select[T](ctx, e)
}

// SelectConnected returns the rows of toTable reachable from the fromTable
// nodes matched by fromBag over edgeTable, using the engine's graph MATCH
// syntax. An empty bag yields nil without issuing a command.
func SelectConnected[T any](ctx context.Context, s *Store, fromTable, edgeTable, toTable string, fromBag any) ([]T, error) {
	props, ps, err := bagProps(fromBag)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}
	query := synth.SelectConnected(fromTable, edgeTable, toTable, props)
	s.trace(ctx, query, len(ps))
	e := s.command(query)
	bindNonNull(e, ps)
	return Select[T](ctx, e)
}

// resolveNodeID resolves the identifier of ref: a system column in the key
// bag wins, otherwise a scalar sub-query keyed by the non-reserved
// properties is issued. The second return is false when the identifier
// cannot be resolved.
func (s *Store) resolveNodeID(ctx context.Context, ref NodeRef) (any, bool, error) {
	props, ps, err := bagProps(ref.Keys)
	if err != nil {
		return nil, false, err
	}
	if id, ok := synth.NodeID(props); ok {
		return id, true, nil
	}
	keys := synth.NonReserved(props)
	if len(keys) == 0 {
		return nil, false, nil
	}
	query, _ := synth.NodeIDQuery(ref.Table, props)
	s.trace(ctx, query, len(keys))
	e := s.command(query)
	for _, p := range ps {
		if !p.Null && !synth.IsReserved(p.Name) {
			e.RawParam(p)
		}
	}
	id, err := Scalar[any](ctx, e)
	if err != nil {
		return nil, false, err
	}
	return id, id != nil, nil
}

// InsertEdge inserts an edge row connecting from and to, carrying the
// properties of the bag. Both endpoint identifiers are bound as parameters.
// A nil or empty bag is a no-op returning zero; an endpoint that cannot be
// resolved is an error.
func (s *Store) InsertEdge(ctx context.Context, table string, from, to NodeRef, bag any) (int64, error) {
	props, ps, err := bagProps(bag)
	if err != nil {
		return 0, err
	}
	if len(props) == 0 {
		return 0, nil
	}
	fromID, ok, err := s.resolveNodeID(ctx, from)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("graphair: cannot resolve %s node identifier for edge insert", from.Table)
	}
	toID, ok, err := s.resolveNodeID(ctx, to)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("graphair: cannot resolve %s node identifier for edge insert", to.Table)
	}
	query := synth.InsertEdge(table, props)
	s.trace(ctx, query, len(ps)+2)
	e := s.command(query)
	e.Param("from_id", fromID).Param("to_id", toID)
	bindAll(e, ps)
	return e.ExecContext(ctx)
}

// EdgeExists reports whether an edge row matching the resolved endpoints and
// the parameter bag exists. Unresolvable endpoints are omitted from the
// probe; with no endpoints and an empty bag it short-circuits to false.
func (s *Store) EdgeExists(ctx context.Context, table string, from, to NodeRef, bag any) (bool, error) {
	props, ps, err := bagProps(bag)
	if err != nil {
		return false, err
	}
	fromID, hasFrom, err := s.resolveNodeID(ctx, from)
	if err != nil {
		return false, err
	}
	toID, hasTo, err := s.resolveNodeID(ctx, to)
	if err != nil {
		return false, err
	}
	if !hasFrom && !hasTo && len(props) == 0 {
		return false, nil
	}
	query := synth.ExistsEdge(table, hasFrom, hasTo, props)
	s.trace(ctx, query, len(ps))
	e := s.command(query)
	if hasFrom {
		e.Param("from_id", fromID)
	}
	if hasTo {
		e.Param("to_id", toID)
	}
	bindNonNull(e, ps)
	count, err := Scalar[int64](ctx, e)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateEdge updates the edge rows between from and to with the non-null
// values of the set bag. An empty set bag, or an endpoint that cannot be
// resolved, is a no-op returning zero.
func (s *Store) UpdateEdge(ctx context.Context, table string, from, to NodeRef, set, where any) (int64, error) {
	setProps, setPs, err := bagProps(set)
	if err != nil {
		return 0, err
	}
	if nonNull(setProps) == 0 {
		return 0, nil
	}
	fromID, toID, ok, err := s.resolveEndpoints(ctx, from, to)
	if err != nil || !ok {
		return 0, err
	}
	whereProps, wherePs, err := bagProps(where)
	if err != nil {
		return 0, err
	}
	query := synth.UpdateEdge(table, setProps, whereProps)
	s.trace(ctx, query, len(setPs)+len(wherePs)+2)
	e := s.command(query)
	e.Param("from_id", fromID).Param("to_id", toID)
	bindNonNull(e, setPs)
	bindNonNull(e, wherePs)
	return e.ExecContext(ctx)
}

// DeleteEdge deletes the edge rows between from and to matched by the where
// bag. An endpoint that cannot be resolved is a no-op returning zero.
func (s *Store) DeleteEdge(ctx context.Context, table string, from, to NodeRef, where any) (int64, error) {
	fromID, toID, ok, err := s.resolveEndpoints(ctx, from, to)
	if err != nil || !ok {
		return 0, err
	}
	whereProps, wherePs, err := bagProps(where)
	if err != nil {
		return 0, err
	}
	query := synth.DeleteEdge(table, whereProps)
	s.trace(ctx, query, len(wherePs)+2)
	e := s.command(query)
	e.Param("from_id", fromID).Param("to_id", toID)
	bindNonNull(e, wherePs)
	return e.ExecContext(ctx)
}

// resolveEndpoints resolves both edge endpoints, reporting ok as false when
// either is absent.
func (s *Store) resolveEndpoints(ctx context.Context, from, to NodeRef) (fromID, toID any, ok bool, err error) {
	fromID, hasFrom, err := s.resolveNodeID(ctx, from)
	if err != nil {
		return nil, nil, false, err
	}
	toID, hasTo, err := s.resolveNodeID(ctx, to)
	if err != nil {
		return nil, nil, false, err
	}
	return fromID, toID, hasFrom && hasTo, nil
}

func nonNull(props []synth.Prop) int {
	n := 0
	for _, p := range props {
		if p.Value != nil {
			n++
		}
	}
	return n
}
