// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"context"
	"time"

	"github.com/canonical/sqlair"
	"github.com/google/uuid"
	"github.com/juju/errors"

	coredatabase "github.com/canonical/pinmanager/core/database"
	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/core/pin"
	"github.com/canonical/pinmanager/domain"
	domainpin "github.com/canonical/pinmanager/domain/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
	"github.com/canonical/pinmanager/internal/database"
)

const (
	insertPinQuery = `
INSERT INTO pin (id, file_id, pool, sticky_token, state, expires_at, owner, created_at)
VALUES ($dbPin.id, $dbPin.file_id, $dbPin.pool, $dbPin.sticky_token, $dbPin.state, $dbPin.expires_at, $dbPin.owner, $dbPin.created_at)`

	updatePinQuery = `
UPDATE pin
SET    pool = $dbPin.pool,
       sticky_token = $dbPin.sticky_token,
       state = $dbPin.state,
       expires_at = $dbPin.expires_at
WHERE  id = $dbPin.id`

	selectPinQuery = `
SELECT &dbPin.*
FROM   pin
WHERE  id = $pinKey.id`

	selectPinWithTokenQuery = `
SELECT &dbPin.*
FROM   pin
WHERE  id = $pinKey.id
AND    sticky_token = $pinKey.sticky_token
AND    state = $pinKey.state`
)

// State describes retrieval and persistence methods for pins.
type State struct {
	*domain.StateBase
	logger logger.Logger
}

// NewState returns a new state reference.
func NewState(factory coredatabase.TxnRunnerFactory, logger logger.Logger) *State {
	return &State{
		StateBase: domain.NewStateBase(factory),
		logger:    logger,
	}
}

// CreatePin inserts a new pin record.
func (s *State) CreatePin(ctx context.Context, p pin.Pin) error {
	if err := p.Validate(); err != nil {
		return errors.Trace(err)
	}

	db, err := s.DB(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	stmt, err := s.Prepare(insertPinQuery, dbPin{})
	if err != nil {
		return errors.Annotate(err, "preparing insert pin statement")
	}

	row := fromPin(p)
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt, row).Run()
		if database.IsErrConstraintUnique(err) {
			return errors.AlreadyExistsf("pin %q", p.ID)
		}
		return errors.Trace(err)
	})
	return errors.Trace(err)
}

// GetPin returns the pin with the input id. PinNotFound is returned if
// there is no such pin.
func (s *State) GetPin(ctx context.Context, id string) (pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return pin.Pin{}, errors.Trace(err)
	}

	stmt, err := s.Prepare(selectPinQuery, dbPin{}, pinKey{})
	if err != nil {
		return pin.Pin{}, errors.Annotate(err, "preparing select pin statement")
	}

	var result pin.Pin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		var err error
		result, err = getPin(ctx, tx, stmt, pinKey{ID: id})
		return err
	})
	return result, errors.Trace(err)
}

// GetPinForFile returns the pin with the input id, provided it protects the
// input file.
func (s *State) GetPinForFile(ctx context.Context, id, fileID string) (pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return pin.Pin{}, errors.Trace(err)
	}

	stmt, err := s.Prepare(`
SELECT &dbPin.*
FROM   pin
WHERE  id = $pinKey.id
AND    file_id = $pinKey.file_id`, dbPin{}, pinKey{})
	if err != nil {
		return pin.Pin{}, errors.Annotate(err, "preparing select pin for file statement")
	}

	var result pin.Pin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		var err error
		result, err = getPin(ctx, tx, stmt, pinKey{ID: id, FileID: fileID})
		return err
	})
	return result, errors.Trace(err)
}

// GetPinWithToken returns the pin with the input id, provided it still holds
// the input sticky token and is in the input state.
func (s *State) GetPinWithToken(ctx context.Context, id, token string, state pin.State) (pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return pin.Pin{}, errors.Trace(err)
	}

	stmt, err := s.Prepare(selectPinWithTokenQuery, dbPin{}, pinKey{})
	if err != nil {
		return pin.Pin{}, errors.Annotate(err, "preparing select pin with token statement")
	}

	key := pinKey{ID: id, StickyToken: token, State: string(state)}
	var result pin.Pin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		var err error
		result, err = getPin(ctx, tx, stmt, key)
		return err
	})
	return result, errors.Trace(err)
}

// GetPins returns every pin of the file on the pool, oldest first.
func (s *State) GetPins(ctx context.Context, fileID, pool string) ([]pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}

	stmt, err := s.Prepare(`
SELECT   &dbPin.*
FROM     pin
WHERE    file_id = $pinLocation.file_id
AND      pool = $pinLocation.pool
ORDER BY created_at, id`, dbPin{}, pinLocation{})
	if err != nil {
		return nil, errors.Annotate(err, "preparing select pins statement")
	}

	var rows []dbPin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt, pinLocation{FileID: fileID, Pool: pool}).GetAll(&rows)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		}
		return errors.Trace(err)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return toPins(rows), nil
}

// GetFilePins returns every pin of the file across all pools, oldest
// first.
func (s *State) GetFilePins(ctx context.Context, fileID string) ([]pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}

	stmt, err := s.Prepare(`
SELECT   &dbPin.*
FROM     pin
WHERE    file_id = $pinLocation.file_id
ORDER BY created_at, id`, dbPin{}, pinLocation{})
	if err != nil {
		return nil, errors.Annotate(err, "preparing select file pins statement")
	}

	var rows []dbPin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt, pinLocation{FileID: fileID}).GetAll(&rows)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		}
		return errors.Trace(err)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return toPins(rows), nil
}

// UpdatePin writes the pool, sticky token, state and expiration of the pin.
// The stored pin must be in the same state or in one that may transition to
// the new state.
func (s *State) UpdatePin(ctx context.Context, p pin.Pin) error {
	if err := p.Validate(); err != nil {
		return errors.Trace(err)
	}

	db, err := s.DB(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	selectStmt, err := s.Prepare(selectPinQuery, dbPin{}, pinKey{})
	if err != nil {
		return errors.Annotate(err, "preparing select pin statement")
	}
	updateStmt, err := s.Prepare(updatePinQuery, dbPin{})
	if err != nil {
		return errors.Annotate(err, "preparing update pin statement")
	}

	return db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		current, err := getPin(ctx, tx, selectStmt, pinKey{ID: p.ID})
		if err != nil {
			return errors.Trace(err)
		}
		if current.State != p.State && !current.State.CanTransitionTo(p.State) {
			return errors.Annotatef(pin.ErrInvalidTransition, "%s from %s to %s", p.ID, current.State, p.State)
		}
		return errors.Trace(tx.Query(ctx, updateStmt, fromPin(p)).Run())
	})
}

// DeletePin removes an UNPINNING record. PinNotFound is returned if there
// is no UNPINNING record with the input id.
func (s *State) DeletePin(ctx context.Context, id string) error {
	db, err := s.DB(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	stmt, err := s.Prepare(`
DELETE FROM pin
WHERE  id = $pinKey.id
AND    state = $pinKey.state`, pinKey{})
	if err != nil {
		return errors.Annotate(err, "preparing delete pin statement")
	}

	key := pinKey{ID: id, State: string(pin.Unpinning)}
	return db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		var outcome sqlair.Outcome
		if err := tx.Query(ctx, stmt, key).Get(&outcome); err != nil {
			return errors.Trace(err)
		}
		affected, err := outcome.Result().RowsAffected()
		if err != nil {
			return errors.Trace(err)
		}
		if affected == 0 {
			return errors.Annotatef(pinerrors.PinNotFound, "unpinning %s", id)
		}
		return nil
	})
}

// HasSharedSticky reports whether another live pin of the same file and
// pool holds the sticky token of the input pin.
func (s *State) HasSharedSticky(ctx context.Context, p pin.Pin) (bool, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return false, errors.Trace(err)
	}

	stmt, err := s.Prepare(`
SELECT COUNT(*) AS &count.count
FROM   pin
WHERE  file_id = $pinLocation.file_id
AND    pool = $pinLocation.pool
AND    sticky_token = $pinLocation.sticky_token
AND    id <> $pinKey.id
AND    state IN ('PINNING', 'PINNED')`, count{}, pinLocation{}, pinKey{})
	if err != nil {
		return false, errors.Annotate(err, "preparing shared sticky statement")
	}

	location := pinLocation{FileID: p.FileID, Pool: p.Pool, StickyToken: p.StickyToken}
	var result count
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return errors.Trace(tx.Query(ctx, stmt, location, pinKey{ID: p.ID}).Get(&result))
	})
	if err != nil {
		return false, errors.Trace(err)
	}
	return result.Count > 0, nil
}

// ConfirmPin moves a PINNING pin holding the input token to PINNED and sets
// its expiration. PinNotFound is returned if no such pin exists, for example
// because it expired and was swept.
func (s *State) ConfirmPin(ctx context.Context, id, token string, expiration *time.Time) (pin.Pin, error) {
	return s.transition(ctx, id, token, pin.Pinning, pin.Pinned, func(p *pin.Pin) {
		p.Expiration = expiration
	})
}

// MarkUnpinning moves a PINNED pin holding the input token to UNPINNING.
func (s *State) MarkUnpinning(ctx context.Context, id, token string) (pin.Pin, error) {
	return s.transition(ctx, id, token, pin.Pinned, pin.Unpinning, nil)
}

func (s *State) transition(
	ctx context.Context, id, token string, from, to pin.State, mutate func(*pin.Pin),
) (pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return pin.Pin{}, errors.Trace(err)
	}

	selectStmt, err := s.Prepare(selectPinWithTokenQuery, dbPin{}, pinKey{})
	if err != nil {
		return pin.Pin{}, errors.Annotate(err, "preparing select pin with token statement")
	}
	updateStmt, err := s.Prepare(updatePinQuery, dbPin{})
	if err != nil {
		return pin.Pin{}, errors.Annotate(err, "preparing update pin statement")
	}

	var result pin.Pin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		current, err := getPin(ctx, tx, selectStmt, pinKey{ID: id, StickyToken: token, State: string(from)})
		if err != nil {
			return errors.Trace(err)
		}
		if result, err = current.Transition(to); err != nil {
			return errors.Trace(err)
		}
		if mutate != nil {
			mutate(&result)
		}
		return errors.Trace(tx.Query(ctx, updateStmt, fromPin(result)).Run())
	})
	return result, errors.Trace(err)
}

// SwapPinLocation performs the swap step of a move in a single transaction.
// The staged pin must still be PINNING and the source pin must still be
// PINNED, both with the tokens they were read with.
//
// On success the source record takes the pool and token of the staged pin
// and the new expiration, and the staged record becomes the UNPINNING
// cleanup record for the sticky flag the source held.
//
// If the staged pin is gone, an UNPINNING record for its sticky flag is
// committed, unless one already exists, and StagedPinNotFound is returned.
// If the source pin is gone, nothing is written and SourcePinNotFound is
// returned.
func (s *State) SwapPinLocation(ctx context.Context, args domainpin.SwapArgs) (domainpin.SwapResult, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return domainpin.SwapResult{}, errors.Trace(err)
	}

	selectStmt, err := s.Prepare(selectPinWithTokenQuery, dbPin{}, pinKey{})
	if err != nil {
		return domainpin.SwapResult{}, errors.Annotate(err, "preparing select pin with token statement")
	}
	updateStmt, err := s.Prepare(updatePinQuery, dbPin{})
	if err != nil {
		return domainpin.SwapResult{}, errors.Annotate(err, "preparing update pin statement")
	}
	insertStmt, err := s.Prepare(insertPinQuery, dbPin{})
	if err != nil {
		return domainpin.SwapResult{}, errors.Annotate(err, "preparing insert pin statement")
	}
	tokenStmt, err := s.Prepare(`
SELECT COUNT(*) AS &count.count
FROM   pin
WHERE  file_id = $pinLocation.file_id
AND    pool = $pinLocation.pool
AND    sticky_token = $pinLocation.sticky_token`, count{}, pinLocation{})
	if err != nil {
		return domainpin.SwapResult{}, errors.Annotate(err, "preparing select sticky token statement")
	}

	var (
		result       domainpin.SwapResult
		stagedMissed bool
	)
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		stagedMissed = false

		staged, err := getPin(ctx, tx, selectStmt, pinKey{
			ID:          args.Staged.ID,
			StickyToken: args.Staged.StickyToken,
			State:       string(pin.Pinning),
		})
		if errors.Is(err, pinerrors.PinNotFound) {
			stagedMissed = true
			return s.insertCleanup(ctx, tx, tokenStmt, insertStmt, args)
		} else if err != nil {
			return errors.Trace(err)
		}

		source, err := getPin(ctx, tx, selectStmt, pinKey{
			ID:          args.Source.ID,
			StickyToken: args.Source.StickyToken,
			State:       string(pin.Pinned),
		})
		if errors.Is(err, pinerrors.PinNotFound) {
			return errors.Annotatef(pinerrors.SourcePinNotFound, "%s with token %s", args.Source.ID, args.Source.StickyToken)
		} else if err != nil {
			return errors.Trace(err)
		}

		// The staged pin is confirmed and the source pin released, then the
		// two records exchange locations so that the source id stays the
		// authoritative one.
		confirmed, err := staged.Transition(pin.Pinned)
		if err != nil {
			return errors.Trace(err)
		}
		released, err := source.Transition(pin.Unpinning)
		if err != nil {
			return errors.Trace(err)
		}

		moved := source
		moved.Pool = confirmed.Pool
		moved.StickyToken = confirmed.StickyToken
		moved.State = confirmed.State
		moved.Expiration = args.Expiration

		cleanup := staged
		cleanup.Pool = released.Pool
		cleanup.StickyToken = released.StickyToken
		cleanup.State = released.State
		cleanup.Expiration = released.Expiration

		if err := tx.Query(ctx, updateStmt, fromPin(moved)).Run(); err != nil {
			return errors.Annotatef(err, "updating %s", moved.ID)
		}
		if err := tx.Query(ctx, updateStmt, fromPin(cleanup)).Run(); err != nil {
			return errors.Annotatef(err, "updating %s", cleanup.ID)
		}

		result = domainpin.SwapResult{Pin: moved, Cleanup: cleanup}
		return nil
	})
	if err != nil {
		return domainpin.SwapResult{}, errors.Trace(err)
	}
	if stagedMissed {
		return domainpin.SwapResult{}, errors.Annotatef(pinerrors.StagedPinNotFound, "%s with token %s", args.Staged.ID, args.Staged.StickyToken)
	}
	return result, nil
}

// insertCleanup records that the sticky flag of the staged pin may be set
// and has to be removed.
func (s *State) insertCleanup(
	ctx context.Context, tx *sqlair.TX, tokenStmt, insertStmt *sqlair.Statement, args domainpin.SwapArgs,
) error {
	location := pinLocation{
		FileID:      args.Staged.FileID,
		Pool:        args.Staged.Pool,
		StickyToken: args.Staged.StickyToken,
	}
	var existing count
	if err := tx.Query(ctx, tokenStmt, location).Get(&existing); err != nil {
		return errors.Trace(err)
	}
	if existing.Count > 0 {
		return nil
	}

	cleanup := args.Staged
	cleanup.ID = args.CleanupID
	cleanup.State = pin.Unpinning
	if err := cleanup.Validate(); err != nil {
		return errors.Trace(err)
	}
	s.logger.Debugf(ctx, "staged pin %s is gone, recording cleanup %s", args.Staged.ID, cleanup.ID)
	return errors.Trace(tx.Query(ctx, insertStmt, fromPin(cleanup)).Run())
}

// ExpirePins releases every pin that expired before now. Expired PINNED pins
// move to UNPINNING. Expired PINNING pins were never confirmed, so they are
// replaced by UNPINNING cleanup records for the sticky flag they may have
// set. The number of released pins is returned.
func (s *State) ExpirePins(ctx context.Context, now time.Time) (int, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}

	expireStmt, err := s.Prepare(`
UPDATE pin
SET    state = 'UNPINNING'
WHERE  state = 'PINNED'
AND    expires_at IS NOT NULL
AND    expires_at < $deadline.now`, deadline{})
	if err != nil {
		return 0, errors.Annotate(err, "preparing expire pinned statement")
	}
	stagedStmt, err := s.Prepare(`
SELECT &dbPin.*
FROM   pin
WHERE  state = 'PINNING'
AND    expires_at IS NOT NULL
AND    expires_at < $deadline.now`, dbPin{}, deadline{})
	if err != nil {
		return 0, errors.Annotate(err, "preparing select expired pinning statement")
	}
	deleteStmt, err := s.Prepare(`
DELETE FROM pin
WHERE  id = $pinKey.id`, pinKey{})
	if err != nil {
		return 0, errors.Annotate(err, "preparing delete expired pinning statement")
	}
	insertStmt, err := s.Prepare(insertPinQuery, dbPin{})
	if err != nil {
		return 0, errors.Annotate(err, "preparing insert pin statement")
	}

	limit := deadline{Now: now.UnixNano()}
	var released int
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		released = 0

		var outcome sqlair.Outcome
		if err := tx.Query(ctx, expireStmt, limit).Get(&outcome); err != nil {
			return errors.Annotate(err, "expiring pinned pins")
		}
		affected, err := outcome.Result().RowsAffected()
		if err != nil {
			return errors.Trace(err)
		}
		released = int(affected)

		var staged []dbPin
		err = tx.Query(ctx, stagedStmt, limit).GetAll(&staged)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		} else if err != nil {
			return errors.Annotate(err, "reading expired pinning pins")
		}

		for _, row := range staged {
			if err := tx.Query(ctx, deleteStmt, pinKey{ID: row.ID}).Run(); err != nil {
				return errors.Annotatef(err, "deleting %s", row.ID)
			}
			cleanup := row
			cleanup.ID = uuid.NewString()
			cleanup.State = string(pin.Unpinning)
			cleanup.CreatedAt = now.UnixNano()
			if err := tx.Query(ctx, insertStmt, cleanup).Run(); err != nil {
				return errors.Annotatef(err, "replacing %s", row.ID)
			}
		}
		released += len(staged)
		return nil
	})
	if err != nil {
		return 0, errors.Trace(err)
	}
	if released > 0 {
		s.logger.Debugf(ctx, "released %d expired pins", released)
	}
	return released, nil
}

// GetUnpinningPins returns every UNPINNING record, oldest first.
func (s *State) GetUnpinningPins(ctx context.Context) ([]pin.Pin, error) {
	db, err := s.DB(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}

	stmt, err := s.Prepare(`
SELECT   &dbPin.*
FROM     pin
WHERE    state = 'UNPINNING'
ORDER BY created_at, id`, dbPin{})
	if err != nil {
		return nil, errors.Annotate(err, "preparing select unpinning pins statement")
	}

	var rows []dbPin
	err = db.Txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		err := tx.Query(ctx, stmt).GetAll(&rows)
		if errors.Is(err, sqlair.ErrNoRows) {
			return nil
		}
		return errors.Trace(err)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return toPins(rows), nil
}

func getPin(ctx context.Context, tx *sqlair.TX, stmt *sqlair.Statement, key pinKey) (pin.Pin, error) {
	var row dbPin
	err := tx.Query(ctx, stmt, key).Get(&row)
	if errors.Is(err, sqlair.ErrNoRows) {
		return pin.Pin{}, errors.Annotatef(pinerrors.PinNotFound, "%s", key.ID)
	} else if err != nil {
		return pin.Pin{}, errors.Trace(err)
	}
	return row.toPin(), nil
}
