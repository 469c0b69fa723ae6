// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package params holds the wire types of the pin manager HTTP API.
package params

import "time"

// UnboundedLifetime is the lifetime-seconds value of pins that never
// expire. Any negative value is treated the same way.
const UnboundedLifetime int64 = -1

// SubjectHeader carries the user name of the caller.
const SubjectHeader = "X-Pin-Subject"

// MovePinsArgs is the body of a move request.
type MovePinsArgs struct {
	SourcePool   string   `json:"source-pool"`
	TargetPool   string   `json:"target-pool"`
	StickyOwners []string `json:"sticky-owners,omitempty"`
}

// MovePinsResult is returned by a move request.
type MovePinsResult struct {
	Moved   int `json:"moved"`
	Cleared int `json:"cleared"`
}

// PinFileArgs is the body of a pin request.
type PinFileArgs struct {
	Pool            string `json:"pool"`
	LifetimeSeconds int64  `json:"lifetime-seconds"`
}

// ExtendPinArgs is the body of an extend request.
type ExtendPinArgs struct {
	LifetimeSeconds *int64 `json:"lifetime-seconds"`
}

// ExtendPinResult is returned by an extend request. A missing expiration
// never lapses.
type ExtendPinResult struct {
	Expiration *time.Time `json:"expiration,omitempty"`
}

// Pin describes a single pin.
type Pin struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file-id"`
	Pool       string     `json:"pool"`
	State      string     `json:"state"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Owner      string     `json:"owner"`
	Created    time.Time  `json:"created"`
}

// PinsResult is returned by a list request.
type PinsResult struct {
	Pins []Pin `json:"pins"`
}

// Error is the body of every failed request.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// VersionResult is returned by a version request.
type VersionResult struct {
	Version string `json:"version"`
}
