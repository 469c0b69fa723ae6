// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	corelogger "github.com/canonical/pinmanager/core/logger"
)

// NewLogr returns a logr.Logger writing to logger, for libraries such as
// otel that log through logr. Verbosity 0 logs at INFO, up to 4 at DEBUG
// and anything higher at TRACE.
func NewLogr(logger corelogger.Logger) logr.Logger {
	return logr.New(&logrSink{logger: logger})
}

type logrSink struct {
	logger corelogger.Logger
	values []any
}

// Init is part of the logr.LogSink interface.
func (s *logrSink) Init(logr.RuntimeInfo) {}

// Enabled is part of the logr.LogSink interface.
func (s *logrSink) Enabled(level int) bool {
	return s.logger.IsLevelEnabled(verbosityLevel(level))
}

// Info is part of the logr.LogSink interface.
func (s *logrSink) Info(level int, msg string, keysAndValues ...any) {
	line := s.format(msg, keysAndValues)
	ctx := context.Background()
	switch verbosityLevel(level) {
	case corelogger.INFO:
		s.logger.Infof(ctx, "%s", line)
	case corelogger.DEBUG:
		s.logger.Debugf(ctx, "%s", line)
	default:
		s.logger.Tracef(ctx, "%s", line)
	}
}

// Error is part of the logr.LogSink interface.
func (s *logrSink) Error(err error, msg string, keysAndValues ...any) {
	s.logger.Errorf(context.Background(), "%s: %v", s.format(msg, keysAndValues), err)
}

// WithValues is part of the logr.LogSink interface.
func (s *logrSink) WithValues(keysAndValues ...any) logr.LogSink {
	values := make([]any, 0, len(s.values)+len(keysAndValues))
	values = append(values, s.values...)
	return &logrSink{
		logger: s.logger,
		values: append(values, keysAndValues...),
	}
}

// WithName is part of the logr.LogSink interface.
func (s *logrSink) WithName(name string) logr.LogSink {
	return &logrSink{
		logger: s.logger.Child(name),
		values: s.values,
	}
}

func (s *logrSink) format(msg string, keysAndValues []any) string {
	all := append(append([]any(nil), s.values...), keysAndValues...)
	if len(all) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(all); i += 2 {
		var value any = "<missing>"
		if i+1 < len(all) {
			value = all[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", all[i], value)
	}
	return b.String()
}

func verbosityLevel(level int) corelogger.Level {
	switch {
	case level <= 0:
		return corelogger.INFO
	case level <= 4:
		return corelogger.DEBUG
	}
	return corelogger.TRACE
}
