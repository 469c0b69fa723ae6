// Copyright 2022 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pinsweeper

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"

	"github.com/canonical/pinmanager/core/logger"
)

// PinService is the part of the pin service swept by the worker.
type PinService interface {
	// ExpirePins releases every pin that expired.
	ExpirePins(ctx context.Context) (int, error)

	// ReleaseUnpinning clears the sticky flags of released pins and deletes
	// them.
	ReleaseUnpinning(ctx context.Context) (int, error)
}

// Config defines the operation of the Worker.
type Config struct {
	PinService PinService
	Logger     logger.Logger
	Clock      clock.Clock

	// Interval is the time between two sweeps.
	Interval time.Duration
}

// Validate returns an error if config cannot drive the Worker.
func (config Config) Validate() error {
	if config.PinService == nil {
		return errors.NotValidf("nil PinService")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.Interval <= 0 {
		return errors.NotValidf("non-positive Interval")
	}
	return nil
}

// New returns a pin sweeper backed by config, or an error.
func New(config Config) (worker.Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	w := &Worker{
		config: config,
	}
	err := catacomb.Invoke(catacomb.Plan{
		Name: "pin-sweeper",
		Site: &w.catacomb,
		Work: w.loop,
	})
	return w, errors.Trace(err)
}

// Worker periodically releases expired pins and removes the sticky flags
// of released pins. Sweep failures are logged and retried on the next
// sweep.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config
}

// Kill is defined on worker.Worker.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

func (w *Worker) loop() error {
	ctx, cancel := w.scopedContext()
	defer cancel()

	timer := w.config.Clock.NewTimer(w.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case <-timer.Chan():
			w.sweep(ctx)
			timer.Reset(w.config.Interval)
		}
	}
}

// sweep runs one round, bounded by the sweep interval.
func (w *Worker) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.config.Interval)
	defer cancel()

	expired, err := w.config.PinService.ExpirePins(ctx)
	if err != nil {
		w.config.Logger.Warningf(ctx, "expiring pins: %v", err)
	} else if expired > 0 {
		w.config.Logger.Infof(ctx, "expired %d pins", expired)
	}

	released, err := w.config.PinService.ReleaseUnpinning(ctx)
	if err != nil {
		w.config.Logger.Warningf(ctx, "releasing unpinned pins: %v", err)
	}
	if released > 0 {
		w.config.Logger.Debugf(ctx, "released %d unpinned pins", released)
	}
}

// scopedContext returns a context that is cancelled when the worker dies.
func (w *Worker) scopedContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-w.catacomb.Dying():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
