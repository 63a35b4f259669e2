// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package graphair

import (
	"context"
	"database/sql"
	"sync/atomic"
)

// M is a convenience parameter-bag type. M is not a special type, any map
// with string keys or any struct can be used wherever a bag is accepted.
type M map[string]any

var ErrNoRows = sql.ErrNoRows
var ErrTXDone = sql.ErrTxDone

// DB wraps a database handle to a graph-capable relational store.
type DB struct {
	sqldb *sql.DB
}

// NewDB creates a new [graphair.DB] from a [sql.DB].
func NewDB(sqldb *sql.DB) *DB {
	if sqldb == nil {
		return nil
	}
	return &DB{sqldb: sqldb}
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Command builds an [Executor] for a free-form command on the database. Each
// Executor runs exactly one execution.
func (db *DB) Command(query string) *Executor {
	return newExecutor(db, nil, commandText, query)
}

// Routine builds an [Executor] invoking the named stored routine. The
// invocation text is synthesized from the bound parameters at execution time.
func (db *DB) Routine(name string) *Executor {
	return newExecutor(db, nil, commandRoutine, name)
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended with a [TX.Commit]
// or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// Command builds an [Executor] for a free-form command on the transaction.
// The executor never commits or rolls back the transaction.
func (tx *TX) Command(query string) *Executor {
	return newExecutor(tx.db, tx, commandText, query)
}

// Routine builds an [Executor] invoking the named stored routine on the
// transaction.
func (tx *TX) Routine(name string) *Executor {
	return newExecutor(tx.db, tx, commandRoutine, name)
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}
