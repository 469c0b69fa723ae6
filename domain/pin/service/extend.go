// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

// ExtendPin makes the pin valid for at least the requested lifetime, capped
// at the configured maximum, and returns its expiration. A nil expiration
// means the pin never expires.
//
// When the pin already covers the lifetime nothing changes and no pool is
// contacted. Otherwise the pin is moved onto the pool it is already on with
// the new expiration.
func (s *Service) ExtendPin(ctx context.Context, req pin.ExtendPinRequest) (*time.Time, error) {
	p, err := s.st.GetPinForFile(ctx, req.PinID, req.FileID)
	if errors.Is(err, pinerrors.PinNotFound) {
		return nil, pinerrors.WithKind(pinerrors.InvalidMessage,
			errors.Annotatef(err, "pin %s of file %s", req.PinID, req.FileID))
	} else if err != nil {
		return nil, storageFailure(errors.Trace(err))
	}

	if !s.authorizer.CanExtend(req.Subject, p) {
		return nil, pinerrors.WithKind(pinerrors.PermissionDenied,
			errors.Errorf("%s may not extend %s", req.Subject.Id(), p.ID))
	}

	switch p.State {
	case pin.Pinning:
		return nil, pinerrors.WithKind(pinerrors.InvalidPin,
			errors.Errorf("pin %s is not yet pinned", p.ID))
	case pin.Unpinning:
		return nil, pinerrors.WithKind(pinerrors.InvalidPin,
			errors.Errorf("pin %s is being unpinned", p.ID))
	}

	lifetime := pin.CapLifetime(req.Lifetime, s.maxLifetime)
	now := s.clock.Now()
	if p.Covers(now, lifetime) {
		return p.Expiration, nil
	}

	moved, err := s.Move(ctx, p, p.Pool, pin.ExpirationAfter(now, lifetime))
	if moved.ID != "" {
		return moved.Expiration, errors.Trace(err)
	}
	return nil, errors.Trace(err)
}
