// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"strings"
	"sync"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"

	"github.com/canonical/pinmanager/core/pin"
)

// ReconcileStickyFlags clears every sticky flag of the file on the pool that
// was created by the pin manager but is held by no live pin. Owners lists
// the sticky flag owners the pool currently holds for the file. Flags of
// other owners are left alone. The number of cleared flags is returned.
//
// It is safe to call repeatedly and while moves are in progress, since it
// never clears a flag with a live pin.
func (s *Service) ReconcileStickyFlags(ctx context.Context, fileID, pool string, owners []string) (int, error) {
	candidates := set.NewStrings()
	for _, owner := range owners {
		if strings.HasPrefix(owner, pin.StickyTokenPrefix) {
			candidates.Add(owner)
		}
	}
	if candidates.IsEmpty() {
		return 0, nil
	}

	pins, err := s.st.GetPins(ctx, fileID, pool)
	if err != nil {
		return 0, storageFailure(errors.Annotatef(err, "reading pins of %s on %s", fileID, pool))
	}
	live := set.NewStrings()
	for _, p := range pins {
		if p.IsLive() {
			live.Add(p.StickyToken)
		}
	}

	var (
		cleared  int
		firstErr error
	)
	for _, owner := range candidates.Difference(live).SortedValues() {
		if err := s.setSticky(ctx, pool, fileID, false, owner, nil); err != nil {
			s.logger.Warningf(ctx, "clearing stale sticky flag: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Infof(ctx, "cleared stale sticky flag %s of %s on %s", owner, fileID, pool)
		cleared++
	}
	return cleared, errors.Trace(firstErr)
}

// MovePins clears the stale sticky flags of the file on the source pool and
// then moves every PINNED pin of the file on the source pool to the target
// pool, keeping their expirations. Only flags held under the manager's
// token prefix are cleared; flags of other owners are kept. It returns the
// number of moved pins and cleared flags. A pin whose old flag could not be
// released still counts as moved. A failure to clear a flag does not stop
// the moves. Moves already started are not cancelled when another one
// fails, and the first error is returned.
func (s *Service) MovePins(ctx context.Context, req pin.MovePinsRequest) (moved, cleared int, err error) {
	cleared, reconcileErr := s.ReconcileStickyFlags(ctx, req.FileID, req.SourcePool, req.StickyOwners)

	pins, err := s.st.GetPins(ctx, req.FileID, req.SourcePool)
	if err != nil {
		return 0, cleared, storageFailure(errors.Annotatef(err, "reading pins of %s on %s", req.FileID, req.SourcePool))
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.moveParallelism)
	for _, p := range pins {
		if p.State != pin.Pinned {
			continue
		}
		p := p
		g.Go(func() error {
			// A failed release still leaves the pin moved.
			result, err := s.Move(ctx, p, req.TargetPool, p.Expiration)
			if result.ID != "" {
				mu.Lock()
				moved++
				mu.Unlock()
			}
			return errors.Trace(err)
		})
	}
	if err := g.Wait(); err != nil {
		return moved, cleared, errors.Trace(err)
	}
	return moved, cleared, errors.Trace(reconcileErr)
}
