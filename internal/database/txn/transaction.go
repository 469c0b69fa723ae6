// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package txn

import (
	"context"
	"database/sql"
	"time"

	"github.com/canonical/sqlair"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"

	"github.com/canonical/pinmanager/core/logger"
)

const (
	// DefaultAttempts is the number of times a transaction is attempted
	// when it keeps failing with a retryable error.
	DefaultAttempts = 250

	// DefaultDelay is the initial delay between attempts.
	DefaultDelay = 10 * time.Millisecond

	// DefaultMaxDelay caps the back off between attempts.
	DefaultMaxDelay = 500 * time.Millisecond
)

// Option configures a RetryingTxnRunner.
type Option func(*option)

type option struct {
	clock    clock.Clock
	logger   logger.Logger
	attempts int
	delay    time.Duration
	maxDelay time.Duration
}

// WithClock sets the clock used to wait between attempts.
func WithClock(clock clock.Clock) Option {
	return func(o *option) {
		o.clock = clock
	}
}

// WithLogger sets the logger used to report retried transactions.
func WithLogger(logger logger.Logger) Option {
	return func(o *option) {
		o.logger = logger
	}
}

// WithAttempts sets the number of attempts made for retryable failures.
func WithAttempts(attempts int) Option {
	return func(o *option) {
		o.attempts = attempts
	}
}

// WithDelay sets the initial and maximum delay between attempts.
func WithDelay(delay, maxDelay time.Duration) Option {
	return func(o *option) {
		o.delay = delay
		o.maxDelay = maxDelay
	}
}

// RetryingTxnRunner runs transactions, retrying them while they fail with
// errors that IsErrRetryable reports as transient.
type RetryingTxnRunner struct {
	clock    clock.Clock
	logger   logger.Logger
	attempts int
	delay    time.Duration
	maxDelay time.Duration
}

// NewRetryingTxnRunner returns a new RetryingTxnRunner.
func NewRetryingTxnRunner(opts ...Option) *RetryingTxnRunner {
	o := &option{
		clock:    clock.WallClock,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		maxDelay: DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &RetryingTxnRunner{
		clock:    o.clock,
		logger:   o.logger,
		attempts: o.attempts,
		delay:    o.delay,
		maxDelay: o.maxDelay,
	}
}

// Txn runs fn inside a single sqlair transaction against db. The
// transaction is committed when fn returns nil and rolled back otherwise.
func (t *RetryingTxnRunner) Txn(ctx context.Context, db *sqlair.DB, fn func(context.Context, *sqlair.TX) error) error {
	return t.Retry(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}

		tx, err := db.Begin(ctx, nil)
		if err != nil {
			return errors.Trace(err)
		}
		if err := fn(ctx, tx); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				t.logDebugf(ctx, "rolling back transaction: %v", rErr)
			}
			return errors.Trace(err)
		}
		return errors.Trace(tx.Commit())
	})
}

// StdTxn runs fn inside a single database/sql transaction against db.
func (t *RetryingTxnRunner) StdTxn(ctx context.Context, db *sql.DB, fn func(context.Context, *sql.Tx) error) error {
	return t.Retry(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Trace(err)
		}
		if err := fn(ctx, tx); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				t.logDebugf(ctx, "rolling back transaction: %v", rErr)
			}
			return errors.Trace(err)
		}
		return errors.Trace(tx.Commit())
	})
}

// Retry calls fn until it succeeds, fails with an error that is not
// retryable, the attempts are exhausted or the context is done.
func (t *RetryingTxnRunner) Retry(ctx context.Context, fn func() error) error {
	err := retry.Call(retry.CallArgs{
		Func: fn,
		IsFatalError: func(err error) bool {
			return !IsErrRetryable(err)
		},
		NotifyFunc: func(lastError error, attempt int) {
			t.logDebugf(ctx, "retrying transaction (attempt %d): %v", attempt, lastError)
		},
		Attempts:    t.attempts,
		Delay:       t.delay,
		BackoffFunc: retry.ExpBackoff(t.delay, t.maxDelay, 1.5, true),
		Clock:       t.clock,
		Stop:        ctx.Done(),
	})
	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) {
		return errors.Trace(retry.LastError(err))
	}
	if retry.IsRetryStopped(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Trace(ctxErr)
		}
		return errors.Trace(retry.LastError(err))
	}
	return errors.Trace(err)
}

func (t *RetryingTxnRunner) logDebugf(ctx context.Context, msg string, args ...any) {
	if t.logger == nil {
		return
	}
	t.logger.Debugf(ctx, msg, args...)
}
