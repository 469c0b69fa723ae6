// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pin

import (
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
)

// UnboundedLifetime requests a pin that never expires. Any negative lifetime
// is treated the same way.
const UnboundedLifetime time.Duration = -1

// StickyTokenPrefix prefixes every sticky flag owner created by the pin
// manager, so pool operators can tell them apart from other owners.
const StickyTokenPrefix = "pinmanager-"

// ErrInvalidTransition is returned when a pin is asked to move to a state
// that is not reachable from its current one.
const ErrInvalidTransition = errors.ConstError("invalid pin state transition")

// Pin is a snapshot of a single lease record. Pins are values: changing a
// Pin never changes the record it was read from until it is written back.
type Pin struct {
	// ID uniquely identifies the record, it never changes.
	ID string

	// FileID identifies the namespace entry being protected.
	FileID string

	// Pool is the name of the pool holding the protected replica.
	Pool string

	// StickyToken is the owner of the pool side sticky flag backing this
	// pin. It is unique to this pin instance.
	StickyToken string

	// State is the lifecycle state of the pin.
	State State

	// Expiration is when the pin lapses. A nil expiration never lapses.
	Expiration *time.Time

	// Owner identifies the subject that requested the pin.
	Owner string

	// CreationTime is when the record was created.
	CreationTime time.Time
}

// String implements fmt.Stringer.
func (p Pin) String() string {
	return fmt.Sprintf("pin %s (file %s, pool %s, %s)", p.ID, p.FileID, p.Pool, p.State)
}

// Validate returns an error if the pin cannot be stored.
func (p Pin) Validate() error {
	if p.ID == "" {
		return errors.NotValidf("empty pin id")
	}
	if p.FileID == "" {
		return errors.NotValidf("empty file id")
	}
	if p.Pool == "" {
		return errors.NotValidf("empty pool")
	}
	if err := ValidateToken(p.StickyToken); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(p.State.Validate())
}

// IsLive reports whether the pin still claims its sticky flag.
func (p Pin) IsLive() bool {
	return p.State.IsLive()
}

// IsUnbounded reports whether the pin never expires.
func (p Pin) IsUnbounded() bool {
	return p.Expiration == nil
}

// HasExpired reports whether the pin lapsed before now.
func (p Pin) HasExpired(now time.Time) bool {
	return p.Expiration != nil && p.Expiration.Before(now)
}

// RemainingLifetime returns how long the pin is still valid for at now.
// Unbounded pins return UnboundedLifetime.
func (p Pin) RemainingLifetime(now time.Time) time.Duration {
	if p.Expiration == nil {
		return UnboundedLifetime
	}
	if remaining := p.Expiration.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// Covers reports whether the pin is already valid for the whole of the
// lifetime requested at now.
func (p Pin) Covers(now time.Time, lifetime time.Duration) bool {
	if p.Expiration == nil {
		return true
	}
	if lifetime < 0 {
		return false
	}
	return !p.Expiration.Before(now.Add(lifetime))
}

// Transition returns a copy of the pin in the next state. It fails with
// ErrInvalidTransition if the state machine does not allow the change.
func (p Pin) Transition(next State) (Pin, error) {
	if !p.State.CanTransitionTo(next) {
		return Pin{}, errors.Annotatef(ErrInvalidTransition, "%s to %s", p.State, next)
	}
	p.State = next
	return p, nil
}

// ExpirationAfter returns the expiration for a lifetime starting at now,
// nil for an unbounded lifetime.
func ExpirationAfter(now time.Time, lifetime time.Duration) *time.Time {
	if lifetime < 0 {
		return nil
	}
	t := now.Add(lifetime)
	return &t
}

// CapLifetime limits a requested lifetime to max. A non positive max means
// there is no limit.
func CapLifetime(lifetime, max time.Duration) time.Duration {
	if max <= 0 {
		return lifetime
	}
	if lifetime < 0 || lifetime > max {
		return max
	}
	return lifetime
}

// ValidateToken returns an error if the token could not have been issued by
// the pin manager.
func ValidateToken(token string) error {
	if !strings.HasPrefix(token, StickyTokenPrefix) || len(token) == len(StickyTokenPrefix) {
		return errors.NotValidf("sticky token %q", token)
	}
	return nil
}
