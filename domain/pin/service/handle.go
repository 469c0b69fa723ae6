// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/pinmanager/core/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

// Handle validates and routes an inbound request on its kind. Every error
// returned carries one of the outcome kinds of the errors package.
func (s *Service) Handle(ctx context.Context, req pin.Request) (pin.Outcome, error) {
	if req == nil {
		return pin.Outcome{}, pinerrors.WithKind(pinerrors.InvalidMessage, errors.New("nil request"))
	}

	ctx, span := s.tracer.Start(ctx, "pin/"+string(req.Kind()),
		trace.WithAttributes(attribute.String("pin.request", string(req.Kind()))))
	defer span.End()

	start := s.clock.Now()
	outcome, err := s.handle(ctx, req)
	result := "success"
	if err != nil {
		err = pinerrors.WithKind(pinerrors.Kind(err), err)
		result = string(pinerrors.Kind(err))
		s.logger.Debugf(ctx, "%s failed: %v", req.Kind(), err)

		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	s.metrics.RecordOperation(string(req.Kind()), result, s.clock.Now().Sub(start))
	return outcome, err
}

func (s *Service) handle(ctx context.Context, req pin.Request) (pin.Outcome, error) {
	if err := req.Validate(); err != nil {
		return pin.Outcome{}, pinerrors.WithKind(pinerrors.InvalidMessage, err)
	}

	outcome := pin.Outcome{Kind: req.Kind()}
	switch r := req.(type) {
	case pin.MovePinsRequest:
		moved, cleared, err := s.MovePins(ctx, r)
		outcome.Moved, outcome.Cleared = moved, cleared
		return outcome, errors.Trace(err)

	case pin.ExtendPinRequest:
		expiration, err := s.ExtendPin(ctx, r)
		if err != nil {
			return pin.Outcome{}, errors.Trace(err)
		}
		outcome.Expiration = expiration
		return outcome, nil

	case pin.PinFileRequest:
		p, err := s.PinFile(ctx, r)
		if err != nil {
			return pin.Outcome{}, errors.Trace(err)
		}
		outcome.Pin = &p
		outcome.Expiration = p.Expiration
		return outcome, nil

	case pin.UnpinRequest:
		return outcome, errors.Trace(s.Unpin(ctx, r))

	case pin.ListPinsRequest:
		pins, err := s.ListPins(ctx, r)
		if err != nil {
			return pin.Outcome{}, errors.Trace(err)
		}
		outcome.Pins = pins
		return outcome, nil

	default:
		return pin.Outcome{}, pinerrors.WithKind(pinerrors.InvalidMessage,
			errors.NotSupportedf("request kind %q", req.Kind()))
	}
}
