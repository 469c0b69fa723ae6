// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package logger

import "context"

// Level is the severity of a log message.
type Level int

const (
	UNSPECIFIED Level = iota
	TRACE
	DEBUG
	INFO
	WARNING
	ERROR
	CRITICAL
)

// Logger is the interface used by every package that logs. The context is
// passed so that request scoped values can be attached to messages.
type Logger interface {
	// Errorf logs a message at the error level.
	Errorf(ctx context.Context, msg string, args ...any)

	// Warningf logs a message at the warning level.
	Warningf(ctx context.Context, msg string, args ...any)

	// Infof logs a message at the info level.
	Infof(ctx context.Context, msg string, args ...any)

	// Debugf logs a message at the debug level.
	Debugf(ctx context.Context, msg string, args ...any)

	// Tracef logs a message at the trace level.
	Tracef(ctx context.Context, msg string, args ...any)

	// IsLevelEnabled reports whether messages at level are emitted.
	IsLevelEnabled(Level) bool

	// Child returns a logger scoped under this one.
	Child(name string) Logger
}
