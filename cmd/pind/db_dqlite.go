//go:build dqlite && linux

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/canonical/go-dqlite/v2/client"
	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/internal/database/app"
)

const (
	dbName         = "pinmanager"
	dbReadyTimeout = 30 * time.Second
)

// openDatabase starts a dqlite node storing its data in the directory at
// path and opens the pin database on it.
func openDatabase(ctx context.Context, path string, log logger.Logger) (*sql.DB, func() error, error) {
	node, err := app.New(path, app.WithLogFunc(func(level client.LogLevel, msg string, args ...any) {
		if level >= client.LogWarn {
			log.Warningf(ctx, msg, args...)
			return
		}
		log.Debugf(ctx, msg, args...)
	}))
	if err != nil {
		return nil, nil, errors.Annotatef(err, "starting dqlite node in %q", path)
	}
	db, err := node.OpenDB(ctx, dbName, dbReadyTimeout)
	if err != nil {
		_ = node.Close()
		return nil, nil, errors.Trace(err)
	}
	closer := func() error {
		dbErr := db.Close()
		return errors.Trace(errors.Join(dbErr, node.Close()))
	}
	return db, closer, nil
}
