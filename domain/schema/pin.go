// Copyright 2022 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

import "github.com/canonical/pinmanager/core/database"

// PinDDL is used to create the pin database schema. Patches are applied in
// order and only ever appended to.
func PinDDL() []database.Delta {
	schemas := []func() database.Delta{
		pinStateSchema,
		pinSchema,
	}

	var deltas []database.Delta
	for _, fn := range schemas {
		deltas = append(deltas, fn())
	}
	return deltas
}

func pinStateSchema() database.Delta {
	return database.MakeDelta(`
CREATE TABLE pin_state (
    id    INT PRIMARY KEY,
    state TEXT NOT NULL
);

CREATE UNIQUE INDEX idx_pin_state_state
ON pin_state (state);

INSERT INTO pin_state VALUES
    (0, 'PINNING'),   -- The sticky flag is requested but not confirmed.
    (1, 'PINNED'),    -- The sticky flag is confirmed set.
    (2, 'UNPINNING'); -- The sticky flag is being removed.
`)
}

func pinSchema() database.Delta {
	return database.MakeDelta(`
CREATE TABLE pin (
    id           TEXT PRIMARY KEY,
    file_id      TEXT NOT NULL,
    pool         TEXT NOT NULL,
    sticky_token TEXT NOT NULL,
    state        TEXT NOT NULL,
    -- Unix nanoseconds, NULL for pins that never expire.
    expires_at   INT,
    owner        TEXT NOT NULL,
    created_at   INT NOT NULL,
    CONSTRAINT   fk_pin_state
        FOREIGN KEY (state)
        REFERENCES  pin_state(state)
);

CREATE INDEX idx_pin_file_pool
ON pin (file_id, pool);

CREATE INDEX idx_pin_state_expires_at
ON pin (state, expires_at);

CREATE INDEX idx_pin_sticky_token
ON pin (sticky_token);
`)
}
