// Copyright 2018 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"
	"golang.org/x/net/netutil"

	"github.com/canonical/pinmanager/core/logger"
)

// DefaultShutdownTimeout bounds how long in-flight requests are given to
// complete once the worker is killed.
const DefaultShutdownTimeout = 30 * time.Second

// Config holds the configuration required for the HTTP server worker.
type Config struct {
	Listener net.Listener
	Handler  http.Handler
	Logger   logger.Logger

	// MaxConnections limits the number of connections served at once.
	// Zero means no limit.
	MaxConnections int

	// ShutdownTimeout defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// Validate checks that the worker has what it needs to run.
func (config Config) Validate() error {
	if config.Listener == nil {
		return errors.NotValidf("nil Listener")
	}
	if config.Handler == nil {
		return errors.NotValidf("nil Handler")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.MaxConnections < 0 {
		return errors.NotValidf("negative MaxConnections")
	}
	if config.ShutdownTimeout < 0 {
		return errors.NotValidf("negative ShutdownTimeout")
	}
	return nil
}

// Worker serves HTTP requests on a listener until it is killed, then
// drains in-flight requests.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config
}

// NewWorker returns a worker serving config.Handler on config.Listener.
// The worker owns the listener and closes it when it stops.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	w := &Worker{config: config}
	if err := catacomb.Invoke(catacomb.Plan{
		Name: "http-server",
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Addr returns the address the worker is listening on.
func (w *Worker) Addr() net.Addr {
	return w.config.Listener.Addr()
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

func (w *Worker) loop() error {
	ctx := w.catacomb.Context(context.Background())

	listener := w.config.Listener
	if w.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, w.config.MaxConnections)
	}

	server := &http.Server{
		Handler:           w.config.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()
	w.config.Logger.Infof(ctx, "serving on %s", listener.Addr())

	select {
	case <-w.catacomb.Dying():
	case err := <-served:
		return errors.Annotate(err, "serving http")
	}

	// The catacomb context is already cancelled, so draining gets its own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		w.config.Logger.Warningf(shutdownCtx, "draining connections: %v", err)
		_ = server.Close()
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		w.config.Logger.Warningf(shutdownCtx, "stopping server: %v", err)
	}
	return w.catacomb.ErrDying()
}
