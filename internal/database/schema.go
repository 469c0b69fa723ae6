// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package database

import (
	"context"
	"database/sql"

	"github.com/juju/errors"

	coredatabase "github.com/canonical/pinmanager/core/database"
	"github.com/canonical/pinmanager/core/logger"
)

// ApplyDDL applies every change in deltas that has not been applied yet.
// Changes are identified by their position, so deltas may only ever be
// appended to.
func ApplyDDL(ctx context.Context, runner coredatabase.TxnRunner, deltas []coredatabase.Delta, logger logger.Logger) error {
	err := runner.StdTxn(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_patch (
    version    INT PRIMARY KEY,
    applied_at INT NOT NULL
);`)
		return errors.Trace(err)
	})
	if err != nil {
		return errors.Annotate(err, "creating schema patch table")
	}

	for version, delta := range deltas {
		var applied bool
		err := runner.StdTxn(ctx, func(ctx context.Context, tx *sql.Tx) error {
			var count int
			row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_patch WHERE version = ?`, version)
			if err := row.Scan(&count); err != nil {
				return errors.Trace(err)
			}
			if count > 0 {
				return nil
			}

			if _, err := tx.ExecContext(ctx, delta.Stmt(), delta.Args()...); err != nil {
				return errors.Trace(err)
			}
			_, err := tx.ExecContext(ctx, `
INSERT INTO schema_patch (version, applied_at)
VALUES (?, strftime('%s', 'now'))`, version)
			applied = err == nil
			return errors.Trace(err)
		})
		if err != nil {
			return errors.Annotatef(err, "applying schema patch %d", version)
		}
		if applied && logger != nil {
			logger.Debugf(ctx, "applied schema patch %d", version)
		}
	}
	return nil
}
