// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/names/v5"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/pinmanager/core/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
	"github.com/canonical/pinmanager/domain/pin/state"
	"github.com/canonical/pinmanager/domain/schema"
	databasetesting "github.com/canonical/pinmanager/internal/database/testing"
	loggertesting "github.com/canonical/pinmanager/internal/logger/testing"
)

// stickyKey identifies a sticky flag held by a fakePools.
type stickyKey struct {
	pool, fileID, owner string
}

// fakePools records sticky flags in memory.
type fakePools struct {
	mu    sync.Mutex
	flags map[stickyKey]*time.Time
	calls int
	fail  map[string]error
}

func newFakePools() *fakePools {
	return &fakePools{
		flags: make(map[stickyKey]*time.Time),
		fail:  make(map[string]error),
	}
}

func (f *fakePools) SetSticky(_ context.Context, pool, fileID string, on bool, owner string, validTill *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if err := f.fail[pool]; err != nil {
		return err
	}
	key := stickyKey{pool: pool, fileID: fileID, owner: owner}
	if on {
		f.flags[key] = validTill
	} else {
		delete(f.flags, key)
	}
	return nil
}

func (f *fakePools) owners(pool, fileID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var owners []string
	for key := range f.flags {
		if key.pool == pool && key.fileID == fileID {
			owners = append(owners, key.owner)
		}
	}
	sort.Strings(owners)
	return owners
}

func (f *fakePools) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type allowAll struct{}

func (allowAll) CanExtend(names.UserTag, pin.Pin) bool { return true }

func (allowAll) CanUnpin(names.UserTag, pin.Pin) bool { return true }

// propertySuite runs the service against a real database and in memory
// pools.
type propertySuite struct {
	databasetesting.SqliteSuite

	state *state.State
	pools *fakePools
	clock *testclock.Clock
	svc   *Service
	alice names.UserTag
}

var _ = gc.Suite(&propertySuite{})

func (s *propertySuite) SetUpTest(c *gc.C) {
	s.SqliteSuite.SetUpTest(c)
	s.ApplyDDL(c, schema.PinDDL())

	s.state = state.NewState(s.TxnRunnerFactory(), loggertesting.WrapCheckLog(c))
	s.pools = newFakePools()
	s.clock = testclock.NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s.alice = names.NewUserTag("alice")

	var err error
	s.svc, err = NewService(Config{
		State:         s.state,
		Pools:         s.pools,
		Authorizer:    allowAll{},
		Clock:         s.clock,
		Logger:        loggertesting.WrapCheckLog(c),
		RemoteTimeout: time.Minute,
	})
	c.Assert(err, jc.ErrorIsNil)
}

func (s *propertySuite) pinFile(c *gc.C, pool string, lifetime time.Duration) pin.Pin {
	p, err := s.svc.PinFile(context.Background(), pin.PinFileRequest{
		FileID:   fileID,
		Pool:     pool,
		Lifetime: lifetime,
		Subject:  s.alice,
	})
	c.Assert(err, jc.ErrorIsNil)
	return p
}

func (s *propertySuite) after(d time.Duration) *time.Time {
	t := s.clock.Now().Add(d)
	return &t
}

// checkNoOrphanFlags asserts that every sticky flag on the pools is held by
// a live pin on that pool.
func (s *propertySuite) checkNoOrphanFlags(c *gc.C, pools ...string) {
	for _, pool := range pools {
		pins, err := s.state.GetPins(context.Background(), fileID, pool)
		c.Assert(err, jc.ErrorIsNil)
		live := make(map[string]bool)
		for _, p := range pins {
			if p.IsLive() {
				live[p.StickyToken] = true
			}
		}
		for _, owner := range s.pools.owners(pool, fileID) {
			c.Check(live[owner], jc.IsTrue, gc.Commentf("orphaned flag %s on %s", owner, pool))
		}
	}
}

func (s *propertySuite) TestPinFileSetsFlag(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)

	c.Check(p.State, gc.Equals, pin.Pinned)
	c.Check(p.Expiration.Equal(*s.after(time.Hour)), jc.IsTrue)
	c.Check(s.pools.owners("pool1", fileID), jc.DeepEquals, []string{p.StickyToken})
}

func (s *propertySuite) TestMoveResult(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)
	expiration := s.after(2 * time.Hour)

	moved, err := s.svc.Move(context.Background(), p, "pool2", expiration)
	c.Assert(err, jc.ErrorIsNil)

	stored, err := s.state.GetPin(context.Background(), p.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored, jc.DeepEquals, moved)
	c.Check(stored.Pool, gc.Equals, "pool2")
	c.Check(stored.State, gc.Equals, pin.Pinned)
	c.Check(stored.StickyToken, gc.Not(gc.Equals), p.StickyToken)
	c.Check(stored.Expiration.Equal(*expiration), jc.IsTrue)

	// Exactly one flag on the target, with the new token, valid for at least
	// the new expiration. The source flag is gone.
	c.Assert(s.pools.owners("pool2", fileID), jc.DeepEquals, []string{stored.StickyToken})
	validTill := s.pools.flags[stickyKey{pool: "pool2", fileID: fileID, owner: stored.StickyToken}]
	c.Check(validTill.Before(*expiration), jc.IsFalse)
	c.Check(s.pools.owners("pool1", fileID), gc.HasLen, 0)

	// Nothing is left to clean up.
	unpinning, err := s.state.GetUnpinningPins(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(unpinning, gc.HasLen, 0)
}

func (s *propertySuite) TestMoveTargetUnreachable(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)
	s.pools.fail["pool2"] = errors.New("connection refused")

	_, err := s.svc.Move(context.Background(), p, "pool2", s.after(2*time.Hour))
	c.Assert(err, gc.NotNil)

	stored, err := s.state.GetPin(context.Background(), p.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored, jc.DeepEquals, p)

	onTarget, err := s.state.GetPins(context.Background(), fileID, "pool2")
	c.Assert(err, jc.ErrorIsNil)
	for _, other := range onTarget {
		c.Check(other.State, gc.Not(gc.Equals), pin.Pinned)
	}
	c.Check(s.pools.owners("pool1", fileID), jc.DeepEquals, []string{p.StickyToken})
}

func (s *propertySuite) TestExtendCoveredMakesNoCalls(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)
	calls := s.pools.callCount()

	expiration, err := s.svc.ExtendPin(context.Background(), pin.ExtendPinRequest{
		FileID:   fileID,
		PinID:    p.ID,
		Lifetime: 10 * time.Minute,
		Subject:  s.alice,
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(expiration.Equal(*p.Expiration), jc.IsTrue)
	c.Check(s.pools.callCount(), gc.Equals, calls)
}

func (s *propertySuite) TestExtendRenewsFlag(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)

	expiration, err := s.svc.ExtendPin(context.Background(), pin.ExtendPinRequest{
		FileID:   fileID,
		PinID:    p.ID,
		Lifetime: 5 * time.Hour,
		Subject:  s.alice,
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(expiration.Equal(*s.after(5 * time.Hour)), jc.IsTrue)

	stored, err := s.state.GetPin(context.Background(), p.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.Pool, gc.Equals, "pool1")
	c.Check(s.pools.owners("pool1", fileID), jc.DeepEquals, []string{stored.StickyToken})
}

func (s *propertySuite) TestReconcileTwiceMakesNoCalls(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)

	// Leave a stale flag behind, as a crash between setting a flag and
	// recording its pin would.
	stale := pin.StickyTokenPrefix + "stale"
	err := s.pools.SetSticky(context.Background(), "pool1", fileID, true, stale, nil)
	c.Assert(err, jc.ErrorIsNil)

	cleared, err := s.svc.ReconcileStickyFlags(context.Background(), fileID, "pool1", s.pools.owners("pool1", fileID))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cleared, gc.Equals, 1)
	c.Check(s.pools.owners("pool1", fileID), jc.DeepEquals, []string{p.StickyToken})

	calls := s.pools.callCount()
	cleared, err = s.svc.ReconcileStickyFlags(context.Background(), fileID, "pool1", s.pools.owners("pool1", fileID))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cleared, gc.Equals, 0)
	c.Check(s.pools.callCount(), gc.Equals, calls)
}

func (s *propertySuite) TestConcurrentMoves(c *gc.C) {
	p := s.pinFile(c, "pool1", time.Hour)

	var wg sync.WaitGroup
	targets := []string{"poolA", "poolB"}
	errs := make([]error, len(targets))
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = s.svc.Move(context.Background(), p, target, p.Expiration)
		}(i, target)
	}
	wg.Wait()

	var winner string
	for i, err := range errs {
		if err == nil {
			c.Check(winner, gc.Equals, "", gc.Commentf("both moves succeeded"))
			winner = targets[i]
			continue
		}
		c.Check(pinerrors.Kind(err), gc.Equals, pinerrors.InvalidPin)
		c.Check(err, gc.ErrorMatches, ".*pin no longer valid.*")
	}
	c.Assert(winner, gc.Not(gc.Equals), "")

	stored, err := s.state.GetPin(context.Background(), p.ID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stored.Pool, gc.Equals, winner)
	s.checkNoOrphanFlags(c, "pool1", "poolA", "poolB")

	// Once the loser's staged pin expires, sweeping removes its flag.
	s.clock.Advance(10 * time.Minute)
	_, err = s.svc.ExpirePins(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.svc.ReleaseUnpinning(context.Background())
	c.Assert(err, jc.ErrorIsNil)

	s.checkNoOrphanFlags(c, "pool1", "poolA", "poolB")
	c.Check(s.pools.owners(winner, fileID), jc.DeepEquals, []string{stored.StickyToken})
	for _, pool := range []string{"pool1", "poolA", "poolB"} {
		if pool != winner {
			c.Check(s.pools.owners(pool, fileID), gc.HasLen, 0, gc.Commentf("pool %s", pool))
		}
	}
}

func (s *propertySuite) TestUnpinAndExpiry(c *gc.C) {
	short := s.pinFile(c, "pool1", time.Minute)
	long := s.pinFile(c, "pool1", time.Hour)

	err := s.svc.Unpin(context.Background(), pin.UnpinRequest{FileID: fileID, PinID: long.ID, Subject: s.alice})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.pools.owners("pool1", fileID), jc.DeepEquals, []string{short.StickyToken})

	s.clock.Advance(5 * time.Minute)
	released, err := s.svc.ExpirePins(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(released, gc.Equals, 1)

	deleted, err := s.svc.ReleaseUnpinning(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(deleted, gc.Equals, 1)
	c.Check(s.pools.owners("pool1", fileID), gc.HasLen, 0)

	pins, err := s.state.GetPins(context.Background(), fileID, "pool1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(pins, gc.HasLen, 0)
}
