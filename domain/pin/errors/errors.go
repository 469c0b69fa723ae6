// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package errors

import (
	"context"
	"fmt"

	"github.com/juju/errors"
)

// The outcome kinds reported to callers of the pin manager. Every error
// returned by the pin service satisfies errors.Is for exactly one of them.
const (
	// InvalidMessage is returned when the referenced pin or file is not
	// known.
	InvalidMessage = errors.ConstError("invalid message")

	// PermissionDenied is returned when the subject may not act on the pin.
	PermissionDenied = errors.ConstError("permission denied")

	// Timeout is returned when a pool did not answer in time, or when the
	// staged pin of a move expired before it could be used.
	Timeout = errors.ConstError("timeout")

	// InvalidPin is returned when an operation is not valid in the pin's
	// current state, or when the pin vanished while being operated on.
	InvalidPin = errors.ConstError("invalid pin")

	// GenericFailure is returned for any other remote or storage failure.
	GenericFailure = errors.ConstError("generic failure")
)

const (
	// PinNotFound is raised by the state layer when no record matches.
	PinNotFound = errors.ConstError("pin not found")

	// StagedPinNotFound is raised by the state layer when the staged pin of
	// a move is gone by the time the move swaps it in.
	StagedPinNotFound = errors.ConstError("staged pin not found")

	// SourcePinNotFound is raised by the state layer when the source pin of
	// a move is no longer pinned with the token being moved.
	SourcePinNotFound = errors.ConstError("source pin not found")
)

var kinds = []errors.ConstError{
	InvalidMessage,
	PermissionDenied,
	Timeout,
	InvalidPin,
	GenericFailure,
}

// WithKind returns err so that it also satisfies errors.Is(kind). The
// message of err is kept unchanged. A nil err stays nil, and an error that
// already has a kind is returned as is.
func WithKind(kind errors.ConstError, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := kindOf(err); ok {
		return err
	}
	return &kindError{kind: kind, err: err}
}

// Kind returns the outcome kind of err. Errors without a kind are reported
// as timeouts when caused by a deadline and GenericFailure otherwise.
func Kind(err error) errors.ConstError {
	if kind, ok := kindOf(err); ok {
		return kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errors.Timeout) {
		return Timeout
	}
	return GenericFailure
}

func kindOf(err error) (errors.ConstError, bool) {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind, true
		}
	}
	return "", false
}

type kindError struct {
	kind errors.ConstError
	err  error
}

// Error implements error.
func (e *kindError) Error() string {
	return e.err.Error()
}

// Unwrap exposes both the kind and the wrapped error to errors.Is and
// errors.As.
func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// Format implements fmt.Formatter so that %+v keeps the wrapped details.
func (e *kindError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", e.kind, e.err)
		return
	}
	fmt.Fprint(s, e.Error())
}
