// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package database

import (
	"context"
	"database/sql"

	"github.com/canonical/sqlair"
	"github.com/juju/errors"

	coredatabase "github.com/canonical/pinmanager/core/database"
	"github.com/canonical/pinmanager/internal/database/txn"
)

// txnRunner runs retrying transactions against a single database.
type txnRunner struct {
	db     *sqlair.DB
	runner *txn.RetryingTxnRunner
}

// NewTxnRunner returns a TxnRunner over db.
func NewTxnRunner(db *sql.DB, opts ...txn.Option) coredatabase.TxnRunner {
	return &txnRunner{
		db:     sqlair.NewDB(db),
		runner: txn.NewRetryingTxnRunner(opts...),
	}
}

// Txn is part of the coredatabase.TxnRunner interface.
func (t *txnRunner) Txn(ctx context.Context, fn func(context.Context, *sqlair.TX) error) error {
	return errors.Trace(t.runner.Txn(ctx, t.db, fn))
}

// StdTxn is part of the coredatabase.TxnRunner interface.
func (t *txnRunner) StdTxn(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return errors.Trace(t.runner.StdTxn(ctx, t.db.PlainDB(), fn))
}

// TxnRunnerFactory returns a factory that always returns runner.
func TxnRunnerFactory(runner coredatabase.TxnRunner) coredatabase.TxnRunnerFactory {
	return func() (coredatabase.TxnRunner, error) {
		if runner == nil {
			return nil, errors.New("nil txn runner")
		}
		return runner, nil
	}
}

// IsErrConstraintUnique returns true if the input error was
// returned by the database due to violation of a unique constraint.
func IsErrConstraintUnique(err error) bool {
	return txn.IsErrConstraintUnique(err)
}

// IsErrRetryable returns true if the given error might be transient.
func IsErrRetryable(err error) bool {
	return txn.IsErrRetryable(err)
}
