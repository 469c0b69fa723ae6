// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/juju/errors"
	_ "github.com/mattn/go-sqlite3"
)

// Config describes how to open the local SQLite pin database.
type Config struct {
	// Path is the database file.
	Path string

	// BusyTimeout is how long a connection waits on a locked database
	// before failing with a busy error.
	BusyTimeout time.Duration

	// MaxOpenConns limits the number of open connections.
	MaxOpenConns int
}

// Validate returns an error if the config cannot be used to open a database.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.NotValidf("empty database path")
	}
	return nil
}

// Open opens the SQLite database described by cfg.
//
// Every transaction is started with BEGIN IMMEDIATE, so a transaction holds
// the database write lock from its first statement. Combined with SQLite's
// serializable isolation this linearises concurrent read-modify-write
// transactions over the same pin.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON",
		cfg.Path,
		cfg.BusyTimeout.Milliseconds(),
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %q", cfg.Path)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "pinging %q", cfg.Path)
	}
	return db, nil
}
