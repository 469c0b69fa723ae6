// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"fmt"

	gc "gopkg.in/check.v1"

	"github.com/canonical/pinmanager/core/logger"
)

// WrapCheckLog returns a logger that writes every message to the test log.
func WrapCheckLog(c *gc.C) logger.Logger {
	return checkLogger{c: c}
}

type checkLogger struct {
	c    *gc.C
	name string
}

func (l checkLogger) log(level, msg string, args ...any) {
	l.c.Logf("%s %s %s", level, l.name, fmt.Sprintf(msg, args...))
}

func (l checkLogger) Errorf(_ context.Context, msg string, args ...any) {
	l.log("ERROR", msg, args...)
}

func (l checkLogger) Warningf(_ context.Context, msg string, args ...any) {
	l.log("WARNING", msg, args...)
}

func (l checkLogger) Infof(_ context.Context, msg string, args ...any) {
	l.log("INFO", msg, args...)
}

func (l checkLogger) Debugf(_ context.Context, msg string, args ...any) {
	l.log("DEBUG", msg, args...)
}

func (l checkLogger) Tracef(_ context.Context, msg string, args ...any) {
	l.log("TRACE", msg, args...)
}

func (l checkLogger) IsLevelEnabled(logger.Level) bool {
	return true
}

func (l checkLogger) Child(name string) logger.Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return checkLogger{c: l.c, name: name}
}
