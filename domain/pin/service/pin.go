// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

// PinFile pins the file on the pool for the requested lifetime, capped at
// the configured maximum. The pin is recorded as PINNING, the sticky flag
// is set, and only then is the pin confirmed as PINNED.
func (s *Service) PinFile(ctx context.Context, req pin.PinFileRequest) (pin.Pin, error) {
	now := s.clock.Now()
	expiration := pin.ExpirationAfter(now, pin.CapLifetime(req.Lifetime, s.maxLifetime))

	p := pin.Pin{
		ID:           s.newUUID(),
		FileID:       req.FileID,
		Pool:         req.Pool,
		StickyToken:  s.newToken(),
		State:        pin.Pinning,
		Expiration:   pin.ExpirationAfter(now, 2*s.remoteTimeout),
		Owner:        req.Subject.Id(),
		CreationTime: now,
	}
	if err := s.st.CreatePin(ctx, p); err != nil {
		return pin.Pin{}, storageFailure(errors.Annotatef(err, "creating pin of %s on %s", req.FileID, req.Pool))
	}

	if err := s.setSticky(ctx, req.Pool, req.FileID, true, p.StickyToken, stickyValidTill(expiration)); err != nil {
		return pin.Pin{}, errors.Trace(err)
	}

	confirmed, err := s.st.ConfirmPin(ctx, p.ID, p.StickyToken, expiration)
	if errors.Is(err, pinerrors.PinNotFound) {
		return pin.Pin{}, pinerrors.WithKind(pinerrors.Timeout,
			errors.Annotatef(err, "pin %s expired before it was confirmed", p.ID))
	} else if err != nil {
		return pin.Pin{}, storageFailure(errors.Annotatef(err, "confirming %s", p.ID))
	}
	s.logger.Debugf(ctx, "pinned %s on %s for %s as %s", req.FileID, req.Pool, p.Owner, p.ID)
	return confirmed, nil
}

// Unpin releases the pin: it is marked UNPINNING, its sticky flag is
// cleared and the record deleted.
func (s *Service) Unpin(ctx context.Context, req pin.UnpinRequest) error {
	p, err := s.st.GetPinForFile(ctx, req.PinID, req.FileID)
	if errors.Is(err, pinerrors.PinNotFound) {
		return pinerrors.WithKind(pinerrors.InvalidMessage,
			errors.Annotatef(err, "pin %s of file %s", req.PinID, req.FileID))
	} else if err != nil {
		return storageFailure(errors.Trace(err))
	}

	if !s.authorizer.CanUnpin(req.Subject, p) {
		return pinerrors.WithKind(pinerrors.PermissionDenied,
			errors.Errorf("%s may not unpin %s", req.Subject.Id(), p.ID))
	}
	if p.State != pin.Pinned {
		return pinerrors.WithKind(pinerrors.InvalidPin,
			errors.Errorf("pin %s is %s", p.ID, p.State))
	}

	released, err := s.st.MarkUnpinning(ctx, p.ID, p.StickyToken)
	if errors.Is(err, pinerrors.PinNotFound) {
		return pinerrors.WithKind(pinerrors.InvalidPin,
			errors.Annotatef(err, "unpinning %s: pin no longer valid", p.ID))
	} else if err != nil {
		return storageFailure(errors.Annotatef(err, "unpinning %s", p.ID))
	}
	return errors.Trace(s.release(ctx, released))
}

// ListPins returns the pins of the file, on every pool unless the request
// names one.
func (s *Service) ListPins(ctx context.Context, req pin.ListPinsRequest) ([]pin.Pin, error) {
	var (
		pins []pin.Pin
		err  error
	)
	if req.Pool == "" {
		pins, err = s.st.GetFilePins(ctx, req.FileID)
	} else {
		pins, err = s.st.GetPins(ctx, req.FileID, req.Pool)
	}
	if err != nil {
		return nil, storageFailure(errors.Annotatef(err, "reading pins of %s", req.FileID))
	}
	return pins, nil
}

// ExpirePins releases every pin that expired, returning how many were
// released. Released pins are left UNPINNING for ReleaseUnpinning.
func (s *Service) ExpirePins(ctx context.Context) (int, error) {
	released, err := s.st.ExpirePins(ctx, s.clock.Now())
	if err != nil {
		return 0, storageFailure(errors.Annotate(err, "expiring pins"))
	}
	return released, nil
}

// ReleaseUnpinning clears the sticky flags of all UNPINNING records and
// deletes them. Records that fail are kept for the next call. It returns
// the number of deleted records and the first failure.
func (s *Service) ReleaseUnpinning(ctx context.Context) (int, error) {
	pins, err := s.st.GetUnpinningPins(ctx)
	if err != nil {
		return 0, storageFailure(errors.Annotate(err, "reading unpinning pins"))
	}

	var (
		released int
		firstErr error
	)
	for _, p := range pins {
		if err := ctx.Err(); err != nil {
			return released, errors.Trace(err)
		}
		if err := s.release(ctx, p); err != nil {
			s.logger.Warningf(ctx, "releasing %s: %v", p.ID, err)
			if firstErr == nil {
				firstErr = errors.Annotatef(err, "releasing %s", p.ID)
			}
			continue
		}
		released++
	}
	return released, errors.Trace(firstErr)
}
