// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package database

import (
	"context"
	"database/sql"

	"github.com/canonical/sqlair"
)

// TxnRunner defines an interface for running transactions against the pin
// database.
type TxnRunner interface {
	// Txn executes the input function against the database, using the
	// sqlair package, within a single transaction.
	// Retry semantics are applied automatically based on transient failures.
	// This is the function that almost all downstream database consumers
	// should use.
	Txn(context.Context, func(context.Context, *sqlair.TX) error) error

	// StdTxn executes the input function against the database, within a
	// transaction that depends on the input context.
	// Retry semantics are applied automatically based on transient failures.
	StdTxn(context.Context, func(context.Context, *sql.Tx) error) error
}

// TxnRunnerFactory returns a TxnRunner for a database, or an error if the
// database is not available.
type TxnRunnerFactory func() (TxnRunner, error)

// Delta is a single schema change.
type Delta struct {
	stmt string
	args []any
}

// MakeDelta returns a schema change for the statement and its arguments.
func MakeDelta(stmt string, args ...any) Delta {
	return Delta{stmt: stmt, args: args}
}

// Stmt returns the statement of the change.
func (d Delta) Stmt() string {
	return d.stmt
}

// Args returns the arguments of the statement.
func (d Delta) Args() []any {
	return d.args
}
