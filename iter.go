// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"
	"database/sql"
)

// Iter is a lazy, finite, single-pass sequence of T pulled from an execution.
// It is not restartable: a fresh execution is needed to iterate again.
// [Iter.Close] must be called once iteration is finished.
type Iter[T any] struct {
	e      *Executor
	ctx    context.Context
	cancel context.CancelFunc
	guard  *connGuard
	rows   *sql.Rows
	rowFn  func(*sql.Rows) (T, error)
	cur    T
	err    error
}

// Stream executes the command and returns an iterator that yields one T per
// row, produced by rowFn. Rows are fetched as the caller advances.
//
// Cancellation observed at any advance, or a rowFn failure, actively cancels
// the in-flight operation before the cursor is released, and the originating
// error is reported by [Iter.Close].
func Stream[T any](ctx context.Context, e *Executor, rowFn func(*sql.Rows) (T, error)) *Iter[T] {
	cctx, cancel, guard, err := e.start(ctx)
	if err != nil {
		return &Iter[T]{err: err}
	}
	rows, err := guard.q.QueryContext(cctx, e.sqlText(), e.args()...)
	if err != nil {
		cancel()
		guard.release()
		return &Iter[T]{err: err}
	}
	return &Iter[T]{e: e, ctx: cctx, cancel: cancel, guard: guard, rows: rows, rowFn: rowFn}
}

// Next advances to the next row and reports whether one is available. Once
// Next returns false, or the iterator's context is cancelled, further calls
// return false.
func (it *Iter[T]) Next() bool {
	if it.err != nil || it.rows == nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	v, err := it.rowFn(it.rows)
	if err != nil {
		it.fail(err)
		return false
	}
	it.cur = v
	return true
}

// Value returns the element produced by the last successful [Iter.Next].
func (it *Iter[T]) Value() T {
	return it.cur
}

// fail records the originating error, cancels the in-flight operation and
// only then releases the cursor, so release cannot block on the remote
// operation draining.
func (it *Iter[T]) fail(err error) {
	it.err = err
	it.cancel()
	it.release()
}

func (it *Iter[T]) release() {
	if it.rows != nil {
		cerr := it.rows.Close()
		if it.err == nil {
			it.err = cerr
		}
		it.rows = nil
	}
	if it.guard != nil {
		rerr := it.guard.release()
		if it.err == nil {
			it.err = rerr
		}
		it.guard = nil
	}
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
	if it.e != nil {
		it.e.finish()
	}
}

// Close finishes the iteration and returns any error encountered. It can be
// called multiple times and returns the same error.
func (it *Iter[T]) Close() error {
	it.release()
	return it.err
}
