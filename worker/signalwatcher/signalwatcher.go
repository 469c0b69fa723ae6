// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package signalwatcher

import (
	"context"
	"os"

	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"

	"github.com/canonical/pinmanager/core/logger"
)

// ErrTerminated is returned by the default handler when the process is
// asked to stop.
const ErrTerminated = errors.ConstError("terminated by signal")

// HandlerFunc maps a received signal to the error the watcher dies with.
type HandlerFunc func(os.Signal) error

// Handler returns a HandlerFunc looking the signal up in signalMap and
// falling back to defaultErr.
func Handler(defaultErr error, signalMap map[os.Signal]error) HandlerFunc {
	return func(sig os.Signal) error {
		if err, ok := signalMap[sig]; ok {
			return err
		}
		return defaultErr
	}
}

// Watcher is a worker that dies with the handler's error on the first
// signal it receives.
type Watcher struct {
	catacomb catacomb.Catacomb
	handler  HandlerFunc
	logger   logger.Logger
	sigCh    <-chan os.Signal
}

// New starts a watcher reading from sig. A nil handler makes every signal
// end the watcher with ErrTerminated.
func New(logger logger.Logger, sig <-chan os.Signal, handler HandlerFunc) (*Watcher, error) {
	if logger == nil {
		return nil, errors.NotValidf("nil Logger")
	}
	if sig == nil {
		return nil, errors.NotValidf("nil signal channel")
	}
	if handler == nil {
		handler = Handler(ErrTerminated, nil)
	}

	w := &Watcher{
		handler: handler,
		logger:  logger,
		sigCh:   sig,
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Name: "signal-watcher",
		Site: &w.catacomb,
		Work: w.watch,
	}); err != nil {
		return nil, errors.Annotate(err, "creating catacomb plan")
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Watcher) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Watcher) Wait() error {
	return w.catacomb.Wait()
}

func (w *Watcher) watch() error {
	select {
	case sig, ok := <-w.sigCh:
		if !ok {
			return errors.New("signal channel closed unexpectedly")
		}
		w.logger.Infof(context.Background(), "received %v", sig)
		return w.handler(sig)
	case <-w.catacomb.Dying():
		return w.catacomb.ErrDying()
	}
}
