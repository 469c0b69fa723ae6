// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pin

import (
	"time"

	"github.com/canonical/pinmanager/core/pin"
)

// SwapArgs describes the swap step of a move.
type SwapArgs struct {
	// Source is the authoritative pin being moved, as read before the move
	// started.
	Source pin.Pin

	// Staged is the temporary pin created on the target pool.
	Staged pin.Pin

	// Expiration is the expiration of the moved pin. Nil is unbounded.
	Expiration *time.Time

	// CleanupID is the id used for the cleanup record written when the
	// staged pin is gone.
	CleanupID string
}

// SwapResult is the outcome of a successful swap.
type SwapResult struct {
	// Pin is the authoritative pin, now on the target pool.
	Pin pin.Pin

	// Cleanup is the UNPINNING record holding the sticky flag the pin had
	// before the move.
	Cleanup pin.Pin
}
