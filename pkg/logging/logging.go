// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package logging provides a structured logging interface compatible with slog
// levels and common logging utilities shared by all stattest packages.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Common logging levels for structured logging.
const (
	LevelTrace = slog.Level(-8) // most verbose
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError // least verbose
)

// UnknownLogValue is the placeholder text used when logging nil or unknown values.
const UnknownLogValue = "<unknown>"

// Logger defines a generic logging interface following slog style with log levels.
// It provides structured logging capabilities for both regular messages and error handling.
type Logger interface {
	// Message logs a message at the specified level with optional format arguments.
	Message(ctx context.Context, level slog.Level, msg string, args ...any)

	// Error logs an error at the specified level with optional format arguments.
	Error(ctx context.Context, level slog.Level, err error, msg string, args ...any)

	// WithContext returns a new Logger that appends the specified context to the existing prefix.
	// This allows for hierarchical logging where components can add their context
	// without affecting the original logger instance. Each call extends the prefix chain.
	WithContext(context string) Logger
}

// NewZerologLogger returns a Logger that writes through the given zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return NewZerologLogger(zerolog.Nop())
}

type zerologLogger struct {
	logger zerolog.Logger
	prefix string
}

func (l *zerologLogger) Message(ctx context.Context, level slog.Level, msg string, args ...any) {
	LevelEvent(l.logger, level).Msg(l.prefix + fmt.Sprintf(msg, args...))
}

func (l *zerologLogger) Error(ctx context.Context, level slog.Level, err error, msg string, args ...any) {
	LevelEvent(l.logger, level).Err(err).Msg(l.prefix + fmt.Sprintf(msg, args...))
}

func (l *zerologLogger) WithContext(context string) Logger {
	return &zerologLogger{
		logger: l.logger,
		prefix: l.prefix + context,
	}
}

// LevelEvent maps a slog level onto the matching zerolog event of the given logger.
func LevelEvent(logger zerolog.Logger, level slog.Level) *zerolog.Event {
	switch {
	case level < LevelDebug:
		return logger.Trace()
	case level < LevelInfo:
		return logger.Debug()
	case level < LevelWarn:
		return logger.Info()
	case level < LevelError:
		return logger.Warn()
	default:
		return logger.Error()
	}
}

// FormatLogInt64 formats an int64 pointer value for logging.
// If the pointer is nil, it returns a placeholder value.
func FormatLogInt64(value *int64) string {
	if value != nil {
		return strconv.FormatInt(*value, 10)
	}
	return UnknownLogValue
}

// FormatLogText formats a slice of strings for logging with
// tab indentation and double-newline separation.
// If the slice is empty, it returns a tab-indented placeholder value.
func FormatLogText(lines []string) string {
	if len(lines) > 0 {
		return "\t" + strings.Join(lines, "\n\n\t")
	}
	return "\t" + UnknownLogValue
}
