// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/canonical/graphair/params"
)

// ErrExecutorReused is returned when a second execution is attempted on an
// [Executor]. An Executor runs exactly one command and is then spent.
var ErrExecutorReused = errors.New("graphair: executor has already run")

type commandKind int

const (
	commandText commandKind = iota
	commandRoutine
)

// Executor runs one command against the store: it gathers parameters, owns
// the connection for the duration of the execution and produces results as a
// callback-driven cursor, a lazy sequence, an affected-row count or a scalar.
//
// Executors are built with [DB.Command], [DB.Routine], [TX.Command] or
// [TX.Routine]. The fluent parameter methods record contract violations and
// surface them on execution, before any I/O is attempted.
type Executor struct {
	db      *DB
	tx      *TX
	kind    commandKind
	query   string
	params  []*params.Parameter
	timeout time.Duration

	// err holds the first contract violation hit while building.
	err error
	// used flips on the first execution attempt.
	used int32
	// finished flips once an execution has completed and output parameter
	// values are readable.
	finished int32
}

func newExecutor(db *DB, tx *TX, kind commandKind, query string) *Executor {
	e := &Executor{db: db, tx: tx, kind: kind, query: query}
	if query == "" {
		if kind == commandRoutine {
			e.err = fmt.Errorf("graphair: cannot execute routine with empty name")
		} else {
			e.err = fmt.Errorf("graphair: cannot execute empty command")
		}
	}
	return e
}

// Param binds a named input parameter.
func (e *Executor) Param(name string, value any) *Executor {
	return e.DirParam(name, value, params.Input)
}

// DirParam binds a named parameter with an explicit direction. For output
// directions prefer [Out], [InOut] or [Return], which give a typed handle on
// the value written back by the store.
func (e *Executor) DirParam(name string, value any, dir params.Direction) *Executor {
	p := params.New(name, value)
	p.Direction = dir
	return e.RawParam(p)
}

// RawParam binds a preconfigured parameter.
func (e *Executor) RawParam(p *params.Parameter) *Executor {
	if e.err != nil {
		return e
	}
	if p == nil {
		e.err = fmt.Errorf("graphair: cannot bind nil parameter")
		return e
	}
	if p.Name == "" {
		e.err = fmt.Errorf("graphair: cannot bind parameter with empty name")
		return e
	}
	e.params = append(e.params, p)
	return e
}

// Params binds one input parameter per entry of the bag, which may be a map
// with string keys or a struct.
func (e *Executor) Params(bag any) *Executor {
	if e.err != nil {
		return e
	}
	ps, err := params.Bind(bag)
	if err != nil {
		e.err = err
		return e
	}
	e.params = append(e.params, ps...)
	return e
}

// Timeout caps the execution time. Zero means no cap beyond the caller's
// context.
func (e *Executor) Timeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// queryable is the subset of execution methods shared by sql.Conn and sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// connGuard scopes one acquisition of an execution substrate. Release closes
// the connection if and only if this guard checked it out; an executor
// running inside a caller's transaction closes nothing.
type connGuard struct {
	q     queryable
	owned *sql.Conn
}

func (g *connGuard) release() error {
	if g.owned == nil {
		return nil
	}
	return g.owned.Close()
}

// start validates the execution contract, marks the executor used and
// acquires the execution substrate. The returned cancel function must be
// called once the cursor, if any, has been released.
func (e *Executor) start(ctx context.Context) (context.Context, context.CancelFunc, *connGuard, error) {
	if e.err != nil {
		return nil, nil, nil, e.err
	}
	if !atomic.CompareAndSwapInt32(&e.used, 0, 1) {
		return nil, nil, nil, ErrExecutorReused
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var cancels []context.CancelFunc
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		cancels = append(cancels, cancel)
	}
	ctx, cancel := context.WithCancel(ctx)
	cancels = append(cancels, cancel)
	cancelAll := func() {
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}

	guard, err := e.acquire(ctx)
	if err != nil {
		cancelAll()
		return nil, nil, nil, err
	}
	return ctx, cancelAll, guard, nil
}

func (e *Executor) acquire(ctx context.Context) (*connGuard, error) {
	if e.tx != nil {
		if e.tx.isDone() {
			return nil, ErrTXDone
		}
		return &connGuard{q: e.tx.sqltx}, nil
	}
	conn, err := e.db.sqldb.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &connGuard{q: conn, owned: conn}, nil
}

func (e *Executor) finish() {
	atomic.StoreInt32(&e.finished, 1)
}

func (e *Executor) isFinished() bool {
	return atomic.LoadInt32(&e.finished) == 1
}

// sqlText returns the command text, synthesizing the routine invocation from
// the bound parameters when the executor targets a stored routine.
func (e *Executor) sqlText() string {
	if e.kind == commandText {
		return e.query
	}
	var ret string
	var parts []string
	for _, p := range e.params {
		switch p.Direction {
		case params.ReturnValue:
			ret = "@" + p.Name + " = "
		case params.Output, params.InputOutput:
			parts = append(parts, "@"+p.Name+" = @"+p.Name+" OUTPUT")
		default:
			parts = append(parts, "@"+p.Name+" = @"+p.Name)
		}
	}
	q := "EXEC " + ret + e.query
	if len(parts) > 0 {
		q += " " + strings.Join(parts, ", ")
	}
	return q
}

func (e *Executor) args() []any {
	args := make([]any, 0, len(e.params))
	for _, p := range e.params {
		args = append(args, p.NamedArg())
	}
	return args
}

// QueryContext executes the command and hands the forward-only cursor to fn.
// The cursor is only valid for the duration of the callback.
//
// If fn fails, or ctx is cancelled while the cursor is live, the in-flight
// operation is cancelled before the cursor is released; releasing a
// forward-only cursor otherwise blocks until the remote operation completes.
// The originating error, not the release outcome, is returned.
func (e *Executor) QueryContext(ctx context.Context, fn func(*sql.Rows) error) error {
	cctx, cancel, guard, err := e.start(ctx)
	if err != nil {
		return err
	}
	defer guard.release()
	defer cancel()

	rows, err := guard.q.QueryContext(cctx, e.sqlText(), e.args()...)
	if err != nil {
		return err
	}
	ferr := fn(rows)
	if ferr == nil {
		ferr = cctx.Err()
	}
	if ferr != nil {
		cancel()
	}
	cerr := rows.Close()
	e.finish()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Query is [Executor.QueryContext] with a background context.
func (e *Executor) Query(fn func(*sql.Rows) error) error {
	return e.QueryContext(context.Background(), fn)
}

// Outcome holds the metadata of a completed write execution.
type Outcome struct {
	result sql.Result
}

// Result returns the raw result of the execution.
func (o *Outcome) Result() sql.Result {
	return o.result
}

// ExecOutcome executes a command that returns no rows and fills outcome with
// the execution metadata.
func (e *Executor) ExecOutcome(ctx context.Context, outcome *Outcome) error {
	cctx, cancel, guard, err := e.start(ctx)
	if err != nil {
		return err
	}
	defer guard.release()
	defer cancel()

	res, err := guard.q.ExecContext(cctx, e.sqlText(), e.args()...)
	if err != nil {
		return err
	}
	e.finish()
	if outcome != nil {
		outcome.result = res
	}
	return nil
}

// ExecContext executes a command that returns no rows and reports the number
// of rows affected.
func (e *Executor) ExecContext(ctx context.Context) (int64, error) {
	var outcome Outcome
	if err := e.ExecOutcome(ctx, &outcome); err != nil {
		return 0, err
	}
	return outcome.Result().RowsAffected()
}

// Exec is [Executor.ExecContext] with a background context.
func (e *Executor) Exec() (int64, error) {
	return e.ExecContext(context.Background())
}

// Scalar executes the command and returns the first column of the first row
// coerced to T, discarding any remaining columns. A SQL NULL result, or an
// empty result, yields the zero value of T.
func Scalar[T any](ctx context.Context, e *Executor) (T, error) {
	var out T
	err := e.QueryContext(ctx, func(rows *sql.Rows) error {
		if !rows.Next() {
			return rows.Err()
		}
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		raw := *(dest[0].(*any))
		if raw == nil {
			return nil
		}
		v, err := coerce[T](raw)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
