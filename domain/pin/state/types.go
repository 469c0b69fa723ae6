// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"database/sql"
	"time"

	"github.com/canonical/pinmanager/core/pin"
)

// dbPin is a row of the pin table.
type dbPin struct {
	ID          string        `db:"id"`
	FileID      string        `db:"file_id"`
	Pool        string        `db:"pool"`
	StickyToken string        `db:"sticky_token"`
	State       string        `db:"state"`
	ExpiresAt   sql.NullInt64 `db:"expires_at"`
	Owner       string        `db:"owner"`
	CreatedAt   int64         `db:"created_at"`
}

// pinLocation identifies the pool and sticky flag of a pin.
type pinLocation struct {
	FileID      string `db:"file_id"`
	Pool        string `db:"pool"`
	StickyToken string `db:"sticky_token"`
}

// pinKey is used to select a single pin, optionally in a given state.
type pinKey struct {
	ID          string `db:"id"`
	FileID      string `db:"file_id"`
	StickyToken string `db:"sticky_token"`
	State       string `db:"state"`
}

// deadline is used to select pins expiring before a point in time.
type deadline struct {
	Now int64 `db:"now"`
}

// count is used to read aggregate results.
type count struct {
	Count int `db:"count"`
}

func fromPin(p pin.Pin) dbPin {
	row := dbPin{
		ID:          p.ID,
		FileID:      p.FileID,
		Pool:        p.Pool,
		StickyToken: p.StickyToken,
		State:       string(p.State),
		Owner:       p.Owner,
		CreatedAt:   p.CreationTime.UnixNano(),
	}
	if p.Expiration != nil {
		row.ExpiresAt = sql.NullInt64{Int64: p.Expiration.UnixNano(), Valid: true}
	}
	return row
}

func (r dbPin) toPin() pin.Pin {
	p := pin.Pin{
		ID:           r.ID,
		FileID:       r.FileID,
		Pool:         r.Pool,
		StickyToken:  r.StickyToken,
		State:        pin.State(r.State),
		Owner:        r.Owner,
		CreationTime: time.Unix(0, r.CreatedAt).UTC(),
	}
	if r.ExpiresAt.Valid {
		t := time.Unix(0, r.ExpiresAt.Int64).UTC()
		p.Expiration = &t
	}
	return p
}

func toPins(rows []dbPin) []pin.Pin {
	pins := make([]pin.Pin, len(rows))
	for i, row := range rows {
		pins[i] = row.toPin()
	}
	return pins
}
