// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/pin"
	domainpin "github.com/canonical/pinmanager/domain/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

// Move moves the pin to the target pool with the new expiration, which may
// be nil for an unbounded pin. The target may be the pool the pin is
// already on, in which case the pin gets a fresh sticky flag.
//
// The sticky flag on the target is set before the pin is switched to the
// target, so the file is protected throughout. The returned pin is the
// moved pin as stored.
//
// If the old sticky flag cannot be cleared the move still stands: the moved
// pin is returned along with the error, and the leftover UNPINNING record
// is released later by ReleaseUnpinning.
func (s *Service) Move(ctx context.Context, p pin.Pin, targetPool string, expiration *time.Time) (pin.Pin, error) {
	now := s.clock.Now()

	// Stage a pin on the target. Its expiration bounds how long it lives if
	// we never get to the swap.
	staged := pin.Pin{
		ID:           s.newUUID(),
		FileID:       p.FileID,
		Pool:         targetPool,
		StickyToken:  s.newToken(),
		State:        pin.Pinning,
		Expiration:   pin.ExpirationAfter(now, 2*s.remoteTimeout),
		Owner:        p.Owner,
		CreationTime: now,
	}
	if err := s.st.CreatePin(ctx, staged); err != nil {
		return pin.Pin{}, storageFailure(errors.Annotatef(err, "staging move of %s", p.ID))
	}

	// Protect the target. On failure the staged pin is left to expire.
	validTill := stickyValidTill(expiration)
	if err := s.setSticky(ctx, targetPool, p.FileID, true, staged.StickyToken, validTill); err != nil {
		s.logger.Debugf(ctx, "moving %s to %s: %v", p.ID, targetPool, err)
		return pin.Pin{}, errors.Trace(err)
	}

	// Swap the pins.
	result, err := s.st.SwapPinLocation(ctx, domainpin.SwapArgs{
		Source:     p,
		Staged:     staged,
		Expiration: expiration,
		CleanupID:  s.newUUID(),
	})
	switch {
	case errors.Is(err, pinerrors.StagedPinNotFound):
		return pin.Pin{}, pinerrors.WithKind(pinerrors.Timeout,
			errors.Annotatef(err, "moving %s to %s: staged pin expired", p.ID, targetPool))
	case errors.Is(err, pinerrors.SourcePinNotFound):
		return pin.Pin{}, pinerrors.WithKind(pinerrors.InvalidPin,
			errors.Annotatef(err, "moving %s to %s: pin no longer valid", p.ID, targetPool))
	case err != nil:
		return pin.Pin{}, storageFailure(errors.Annotatef(err, "moving %s to %s", p.ID, targetPool))
	}
	s.logger.Debugf(ctx, "moved %s from %s to %s", p.ID, p.Pool, targetPool)

	// Release the source.
	if err := s.release(ctx, result.Cleanup); err != nil {
		return result.Pin, errors.Annotatef(err, "releasing %s after move", p.ID)
	}
	return result.Pin, nil
}

// release clears the sticky flag of an UNPINNING record, unless another live
// pin still holds it, and then deletes the record.
func (s *Service) release(ctx context.Context, p pin.Pin) error {
	shared, err := s.st.HasSharedSticky(ctx, p)
	if err != nil {
		return storageFailure(errors.Trace(err))
	}

	if shared {
		s.logger.Debugf(ctx, "sticky flag %s on %s is shared, keeping it", p.StickyToken, p.Pool)
	} else if err := s.setSticky(ctx, p.Pool, p.FileID, false, p.StickyToken, nil); err != nil {
		return errors.Trace(err)
	}

	err = s.st.DeletePin(ctx, p.ID)
	if errors.Is(err, pinerrors.PinNotFound) {
		// Released concurrently.
		return nil
	} else if err != nil {
		return storageFailure(errors.Annotatef(err, "deleting %s", p.ID))
	}
	return nil
}

// stickyValidTill returns the validity of a sticky flag backing a pin that
// expires at expiration.
func stickyValidTill(expiration *time.Time) *time.Time {
	if expiration == nil {
		return nil
	}
	t := expiration.Add(StickySafetyMargin)
	return &t
}
