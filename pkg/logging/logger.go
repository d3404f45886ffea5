/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Logger is minimal logging interface designed to be easily adaptable to any
// logging library.
type Logger interface {
	// Log is invoked with the log level, the log message, and key/value pairs
	// of any relevant log details. The keys are always strings, while the
	// values are unspecified.
	Log(level LogLevel, text string, args ...interface{})
}

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps the textual level names accepted on command lines.
func ParseLevel(name string) (LogLevel, error) {
	switch name {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Errorf("unknown log level %q", name)
	}
}

type nilLogger struct{}

func (nilLogger) Log(level LogLevel, text string, args ...interface{}) {}

// NilLogger discards everything.
var NilLogger Logger = nilLogger{}

type consoleLogger struct {
	level  LogLevel
	logger zerolog.Logger
}

// NewConsoleLogger returns a logger writing human-readable lines to out.
// Messages below level are dropped.
func NewConsoleLogger(out io.Writer, level LogLevel) Logger {
	return &consoleLogger{
		level: level,
		logger: zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    true,
			TimeFormat: "15:04:05.000",
		}).With().Timestamp().Logger(),
	}
}

// Log writes text followed by the key/value pairs in args. A trailing key
// without a value is reported as %MISSING%.
func (l *consoleLogger) Log(level LogLevel, text string, args ...interface{}) {
	if level < l.level {
		return
	}

	event := l.logger.WithLevel(zerologLevel(level))
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			event = event.Str(key, "%MISSING%")
			break
		}

		switch v := args[i+1].(type) {
		case []byte:
			// Print byte arrays in base 16 encoding.
			event = event.Hex(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(text)
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
