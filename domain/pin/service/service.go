// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/core/pin"
	domainpin "github.com/canonical/pinmanager/domain/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

const (
	// StickySafetyMargin is added to the expiration of a pin when setting
	// its sticky flag, to absorb clock skew between the database and the
	// pools.
	StickySafetyMargin = 30 * time.Minute

	// TracerName names the tracer spans of handled requests are started
	// on.
	TracerName = "github.com/canonical/pinmanager/domain/pin/service"

	// DefaultMoveParallelism is the number of pins moved at once by
	// MovePins when no parallelism is configured.
	DefaultMoveParallelism = 4
)

// State describes retrieval and persistence methods for pins.
type State interface {
	// CreatePin inserts a new pin record.
	CreatePin(ctx context.Context, p pin.Pin) error

	// GetPinForFile returns the pin with the input id, provided it protects
	// the input file.
	GetPinForFile(ctx context.Context, id, fileID string) (pin.Pin, error)

	// GetPins returns every pin of the file on the pool.
	GetPins(ctx context.Context, fileID, pool string) ([]pin.Pin, error)

	// GetFilePins returns every pin of the file.
	GetFilePins(ctx context.Context, fileID string) ([]pin.Pin, error)

	// HasSharedSticky reports whether another live pin holds the sticky
	// flag of the input pin.
	HasSharedSticky(ctx context.Context, p pin.Pin) (bool, error)

	// ConfirmPin moves a PINNING pin to PINNED with the input expiration.
	ConfirmPin(ctx context.Context, id, token string, expiration *time.Time) (pin.Pin, error)

	// MarkUnpinning moves a PINNED pin to UNPINNING.
	MarkUnpinning(ctx context.Context, id, token string) (pin.Pin, error)

	// SwapPinLocation performs the swap step of a move in one transaction.
	SwapPinLocation(ctx context.Context, args domainpin.SwapArgs) (domainpin.SwapResult, error)

	// DeletePin removes an UNPINNING record.
	DeletePin(ctx context.Context, id string) error

	// ExpirePins releases every pin that expired before now.
	ExpirePins(ctx context.Context, now time.Time) (int, error)

	// GetUnpinningPins returns every UNPINNING record.
	GetUnpinningPins(ctx context.Context) ([]pin.Pin, error)
}

// StickyFlagClient sets and clears sticky flags on pools.
type StickyFlagClient interface {
	// SetSticky sets (on) or clears (off) the sticky flag of the file owned
	// by owner on the pool. A nil validTill never lapses.
	SetSticky(ctx context.Context, pool, fileID string, on bool, owner string, validTill *time.Time) error
}

// Authorizer decides whether a subject may act on a pin.
type Authorizer interface {
	// CanExtend reports whether the subject may extend the pin.
	CanExtend(subject names.UserTag, p pin.Pin) bool

	// CanUnpin reports whether the subject may release the pin.
	CanUnpin(subject names.UserTag, p pin.Pin) bool
}

// MetricsRecorder receives the outcome of operations and remote calls.
type MetricsRecorder interface {
	// RecordOperation records a handled request.
	RecordOperation(operation, result string, elapsed time.Duration)

	// RecordStickyCall records a call to a pool.
	RecordStickyCall(action, result string)
}

// Config holds the dependencies and settings of a Service.
type Config struct {
	State      State
	Pools      StickyFlagClient
	Authorizer Authorizer
	Clock      clock.Clock
	Logger     logger.Logger

	// Metrics is optional.
	Metrics MetricsRecorder

	// Tracer is optional. It defaults to the global otel tracer.
	Tracer trace.Tracer

	// RemoteTimeout bounds every call to a pool.
	RemoteTimeout time.Duration

	// MaxLifetime caps requested lifetimes. Zero means no cap.
	MaxLifetime time.Duration

	// MoveParallelism is the number of pins moved at once by MovePins.
	MoveParallelism int

	// NewUUID generates pin ids and sticky tokens. It defaults to random
	// UUIDs.
	NewUUID func() string
}

// Validate returns an error if the config cannot be used to create a
// Service.
func (c Config) Validate() error {
	if c.State == nil {
		return errors.NotValidf("nil State")
	}
	if c.Pools == nil {
		return errors.NotValidf("nil Pools")
	}
	if c.Authorizer == nil {
		return errors.NotValidf("nil Authorizer")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if c.RemoteTimeout <= 0 {
		return errors.NotValidf("non-positive RemoteTimeout")
	}
	if c.MaxLifetime < 0 {
		return errors.NotValidf("negative MaxLifetime")
	}
	if c.MoveParallelism < 0 {
		return errors.NotValidf("negative MoveParallelism")
	}
	return nil
}

// Service provides the pin operations. It keeps no pin state of its own:
// every operation reads what it needs from the State.
type Service struct {
	st              State
	pools           StickyFlagClient
	authorizer      Authorizer
	metrics         MetricsRecorder
	tracer          trace.Tracer
	clock           clock.Clock
	logger          logger.Logger
	remoteTimeout   time.Duration
	maxLifetime     time.Duration
	moveParallelism int
	newUUID         func() string
}

// NewService returns a new Service for the input config.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	s := &Service{
		st:              config.State,
		pools:           config.Pools,
		authorizer:      config.Authorizer,
		metrics:         config.Metrics,
		tracer:          config.Tracer,
		clock:           config.Clock,
		logger:          config.Logger,
		remoteTimeout:   config.RemoteTimeout,
		maxLifetime:     config.MaxLifetime,
		moveParallelism: config.MoveParallelism,
		newUUID:         config.NewUUID,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(TracerName)
	}
	if s.moveParallelism == 0 {
		s.moveParallelism = DefaultMoveParallelism
	}
	if s.newUUID == nil {
		s.newUUID = uuid.NewString
	}
	return s, nil
}

func (s *Service) newToken() string {
	return pin.StickyTokenPrefix + s.newUUID()
}

// setSticky calls the pool, bounded by the remote timeout. The returned
// error carries a Timeout or GenericFailure kind.
func (s *Service) setSticky(ctx context.Context, pool, fileID string, on bool, owner string, validTill *time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	action := "clear"
	if on {
		action = "set"
	}

	err := s.pools.SetSticky(ctx, pool, fileID, on, owner, validTill)
	if err == nil {
		s.metrics.RecordStickyCall(action, "success")
		return nil
	}

	kind := pinerrors.Kind(err)
	if kind != pinerrors.Timeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = pinerrors.Timeout
	}
	if kind == pinerrors.Timeout {
		s.metrics.RecordStickyCall(action, "timeout")
	} else {
		kind = pinerrors.GenericFailure
		s.metrics.RecordStickyCall(action, "failure")
	}
	return pinerrors.WithKind(kind, errors.Annotatef(err, "%s sticky flag %s of %s on %s", action, owner, fileID, pool))
}

// storageFailure gives err the GenericFailure kind unless it already has a
// kind.
func storageFailure(err error) error {
	return pinerrors.WithKind(pinerrors.GenericFailure, err)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(string, string, time.Duration) {}

func (noopMetrics) RecordStickyCall(string, string) {}
