// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package auth decides which subjects may act on existing pins.
package auth

import (
	"github.com/juju/collections/set"
	"github.com/juju/names/v5"

	"github.com/canonical/pinmanager/core/pin"
)

// Policy allows the owner of a pin and any administrator to extend or
// release it.
type Policy struct {
	admins set.Strings
}

// NewPolicy returns a Policy treating the named users as administrators.
func NewPolicy(admins []string) *Policy {
	return &Policy{admins: set.NewStrings(admins...)}
}

// CanExtend reports whether the subject may extend the pin.
func (p *Policy) CanExtend(subject names.UserTag, target pin.Pin) bool {
	return p.allowed(subject, target)
}

// CanUnpin reports whether the subject may release the pin.
func (p *Policy) CanUnpin(subject names.UserTag, target pin.Pin) bool {
	return p.allowed(subject, target)
}

// IsAdmin reports whether the subject is an administrator.
func (p *Policy) IsAdmin(subject names.UserTag) bool {
	return subject.Id() != "" && p.admins.Contains(subject.Id())
}

func (p *Policy) allowed(subject names.UserTag, target pin.Pin) bool {
	if subject.Id() == "" {
		return false
	}
	return subject.Id() == target.Owner || p.IsAdmin(subject)
}
