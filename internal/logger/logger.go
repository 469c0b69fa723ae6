// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package logger

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	corelogger "github.com/canonical/pinmanager/core/logger"
)

// GetLogger returns the logger for the named module, creating it if needed.
func GetLogger(name string) corelogger.Logger {
	return WrapLoggo(loggo.GetLogger(name))
}

// WrapLoggo wraps a loggo.Logger so that it satisfies corelogger.Logger.
func WrapLoggo(logger loggo.Logger) corelogger.Logger {
	return loggoLogger{logger: logger}
}

type loggoLogger struct {
	logger loggo.Logger
}

// Errorf is part of the corelogger.Logger interface.
func (l loggoLogger) Errorf(_ context.Context, msg string, args ...any) {
	l.logger.Errorf(msg, args...)
}

// Warningf is part of the corelogger.Logger interface.
func (l loggoLogger) Warningf(_ context.Context, msg string, args ...any) {
	l.logger.Warningf(msg, args...)
}

// Infof is part of the corelogger.Logger interface.
func (l loggoLogger) Infof(_ context.Context, msg string, args ...any) {
	l.logger.Infof(msg, args...)
}

// Debugf is part of the corelogger.Logger interface.
func (l loggoLogger) Debugf(_ context.Context, msg string, args ...any) {
	l.logger.Debugf(msg, args...)
}

// Tracef is part of the corelogger.Logger interface.
func (l loggoLogger) Tracef(_ context.Context, msg string, args ...any) {
	l.logger.Tracef(msg, args...)
}

// IsLevelEnabled is part of the corelogger.Logger interface.
func (l loggoLogger) IsLevelEnabled(level corelogger.Level) bool {
	return l.logger.IsLevelEnabled(loggo.Level(level))
}

// Child is part of the corelogger.Logger interface.
func (l loggoLogger) Child(name string) corelogger.Logger {
	return loggoLogger{logger: l.logger.Child(name)}
}

// Configure replaces the default writer with one writing to w and applies
// the logging config, e.g. "<root>=INFO;pinmanager.domain=DEBUG".
func Configure(w io.Writer, config string) error {
	writer := loggo.NewSimpleWriter(w, formatEntry)
	if _, err := loggo.ReplaceDefaultWriter(writer); err != nil {
		return errors.Annotate(err, "replacing default log writer")
	}
	return errors.Annotatef(loggo.ConfigureLoggers(config), "configuring loggers with %q", config)
}

func formatEntry(entry loggo.Entry) string {
	ts := entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("%s %s %s %s", ts, entry.Level, entry.Module, entry.Message)
}
