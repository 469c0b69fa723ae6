//go:build dqlite && linux

// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package app

import (
	"context"
	"crypto/tls"
	"database/sql"
	"sync"
	"time"

	"github.com/canonical/go-dqlite/v2/app"
	"github.com/canonical/go-dqlite/v2/client"
	"github.com/juju/errors"
)

// Option can be used to tweak app parameters.
type Option = app.Option

// WithAddress sets the stable network address of this node. Other nodes
// reach it on this address.
func WithAddress(address string) Option {
	return app.WithAddress(address)
}

// WithCluster lists existing nodes to join on first start.
func WithCluster(cluster []string) Option {
	return app.WithCluster(cluster)
}

// WithTLS enables TLS for incoming (listen) and outgoing (dial) traffic.
func WithTLS(listen *tls.Config, dial *tls.Config) Option {
	return app.WithTLS(listen, dial)
}

// WithLogFunc sets a custom log function.
func WithLogFunc(log client.LogFunc) Option {
	return app.WithLogFunc(log)
}

// App wraps a dqlite node holding the pin database.
type App struct {
	*app.App

	closer *onceError
}

// New creates a new dqlite node storing its data in dir.
func New(dir string, options ...Option) (*App, error) {
	node, err := app.New(dir, options...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &App{
		App:    node,
		closer: &onceError{},
	}, nil
}

// OpenDB waits for the node to be ready and opens the named database on it.
// dqlite runs every write transaction on the cluster leader one at a time,
// so a transaction never overlaps another writer.
func (a *App) OpenDB(ctx context.Context, name string, readyTimeout time.Duration) (*sql.DB, error) {
	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := a.App.Ready(readyCtx); err != nil {
		return nil, errors.Annotate(err, "waiting for dqlite node")
	}
	db, err := a.App.Open(ctx, name)
	if err != nil {
		return nil, errors.Annotatef(err, "opening dqlite database %q", name)
	}
	return db, nil
}

// Close closes the node exactly once. Subsequent calls return the error of
// the first one.
func (a *App) Close() error {
	return a.closer.Do(func() error {
		return a.App.Close()
	})
}

type onceError struct {
	once  sync.Once
	mutex sync.Mutex
	err   error
}

func (o *onceError) Do(f func() error) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.once.Do(func() {
		o.err = f()
	})
	return o.err
}
