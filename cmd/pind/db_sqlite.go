//go:build !dqlite || !linux

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"database/sql"

	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/internal/database"
)

// openDatabase opens the SQLite pin database file at path.
func openDatabase(ctx context.Context, path string, log logger.Logger) (*sql.DB, func() error, error) {
	db, err := database.Open(ctx, database.Config{Path: path})
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	log.Debugf(ctx, "opened sqlite database %q", path)
	return db, db.Close, nil
}
