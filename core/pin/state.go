// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pin

import (
	"github.com/juju/errors"
)

// State is the lifecycle state of a pin.
type State string

const (
	// Pinning is the state of a pin whose sticky flag has been requested but
	// not yet confirmed by the pool.
	Pinning State = "PINNING"

	// Pinned is the state of a pin whose sticky flag is confirmed set.
	Pinned State = "PINNED"

	// Unpinning is the terminal state of a pin whose sticky flag is being
	// removed. The record is deleted once the removal is confirmed.
	Unpinning State = "UNPINNING"
)

// transitions holds every valid state change. Deletion is only valid from
// Unpinning and is not a state change, see State.CanDelete.
var transitions = map[State][]State{
	Pinning: {Pinned},
	Pinned:  {Unpinning},
}

// Validate returns an error if the state is not known.
func (s State) Validate() error {
	switch s {
	case Pinning, Pinned, Unpinning:
		return nil
	}
	return errors.NotValidf("pin state %q", string(s))
}

// IsLive reports whether a pin in this state still claims its sticky flag.
func (s State) IsLive() bool {
	return s == Pinning || s == Pinned
}

// CanTransitionTo reports whether a pin may move from s to next.
func (s State) CanTransitionTo(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanDelete reports whether a record in this state may be deleted.
func (s State) CanDelete() bool {
	return s == Unpinning
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}
