// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pin

import (
	"time"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
)

// RequestKind tags the inbound requests understood by the pin manager.
type RequestKind string

const (
	// KindMovePins moves every live pin of a file off a pool.
	KindMovePins RequestKind = "move-pins"

	// KindExtendPin extends the lifetime of a single pin.
	KindExtendPin RequestKind = "extend-pin"

	// KindPinFile creates a new pin.
	KindPinFile RequestKind = "pin-file"

	// KindUnpin releases a pin.
	KindUnpin RequestKind = "unpin"

	// KindListPins reads the pins of a file.
	KindListPins RequestKind = "list-pins"
)

// Request is an inbound message. Implementations are the concrete request
// types of this package and are routed on their Kind.
type Request interface {
	// Kind returns the tag of the request.
	Kind() RequestKind

	// Validate returns an error if the request is malformed.
	Validate() error
}

// MovePinsRequest asks for the pins of a file to be moved between pools,
// typically because the source pool is being drained.
type MovePinsRequest struct {
	FileID     string
	SourcePool string
	TargetPool string

	// StickyOwners lists the sticky flag owners the source pool currently
	// holds for the file.
	StickyOwners []string
}

// Kind is part of the Request interface.
func (MovePinsRequest) Kind() RequestKind { return KindMovePins }

// Validate is part of the Request interface.
func (r MovePinsRequest) Validate() error {
	if r.FileID == "" {
		return errors.NotValidf("empty file id")
	}
	if r.SourcePool == "" || r.TargetPool == "" {
		return errors.NotValidf("empty pool")
	}
	return nil
}

// ExtendPinRequest asks for a pin to stay valid for at least Lifetime.
type ExtendPinRequest struct {
	FileID   string
	PinID    string
	Lifetime time.Duration
	Subject  names.UserTag
}

// Kind is part of the Request interface.
func (ExtendPinRequest) Kind() RequestKind { return KindExtendPin }

// Validate is part of the Request interface.
func (r ExtendPinRequest) Validate() error {
	if r.FileID == "" || r.PinID == "" {
		return errors.NotValidf("empty file or pin id")
	}
	if r.Subject.Id() == "" {
		return errors.NotValidf("empty subject")
	}
	return nil
}

// PinFileRequest asks for a new pin of a file replica on a pool.
type PinFileRequest struct {
	FileID   string
	Pool     string
	Lifetime time.Duration
	Subject  names.UserTag
}

// Kind is part of the Request interface.
func (PinFileRequest) Kind() RequestKind { return KindPinFile }

// Validate is part of the Request interface.
func (r PinFileRequest) Validate() error {
	if r.FileID == "" {
		return errors.NotValidf("empty file id")
	}
	if r.Pool == "" {
		return errors.NotValidf("empty pool")
	}
	if r.Subject.Id() == "" {
		return errors.NotValidf("empty subject")
	}
	return nil
}

// UnpinRequest asks for a pin to be released.
type UnpinRequest struct {
	FileID  string
	PinID   string
	Subject names.UserTag
}

// Kind is part of the Request interface.
func (UnpinRequest) Kind() RequestKind { return KindUnpin }

// Validate is part of the Request interface.
func (r UnpinRequest) Validate() error {
	if r.FileID == "" || r.PinID == "" {
		return errors.NotValidf("empty file or pin id")
	}
	if r.Subject.Id() == "" {
		return errors.NotValidf("empty subject")
	}
	return nil
}

// ListPinsRequest asks for the pins of a file, optionally limited to one
// pool.
type ListPinsRequest struct {
	FileID string
	Pool   string
}

// Kind is part of the Request interface.
func (ListPinsRequest) Kind() RequestKind { return KindListPins }

// Validate is part of the Request interface.
func (r ListPinsRequest) Validate() error {
	if r.FileID == "" {
		return errors.NotValidf("empty file id")
	}
	return nil
}

// Outcome is the result of a successfully handled Request. Which fields are
// set depends on Kind.
type Outcome struct {
	Kind RequestKind

	// Pin is the resulting pin for KindPinFile.
	Pin *Pin

	// Expiration is the resulting expiration for KindExtendPin and
	// KindPinFile. Nil means unbounded.
	Expiration *time.Time

	// Pins holds the pins read for KindListPins.
	Pins []Pin

	// Moved and Cleared count the pins moved and the stale sticky flags
	// cleared for KindMovePins.
	Moved   int
	Cleared int
}
