// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pin holds the types shared by everything that deals with pins.
//
// A pin is a lease keeping one replica of a file resident on one storage
// pool. While a pin is live the pool carries a sticky flag whose owner is the
// pin's sticky token; the flag is what actually stops the pool from evicting
// the replica. The lease store is authoritative, the pool's sticky flags are
// an eventually consistent mirror of it.
package pin
