// Package logging builds the zerolog loggers used by the recordcache binary.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to w at the given level.
//
// An unparsable or empty level falls back to info. Format "json" emits one
// JSON object per line; anything else uses the human-readable console writer.
func New(level, format string, w io.Writer) zerolog.Logger {
	name := strings.ToLower(strings.TrimSpace(level))
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if !strings.EqualFold(format, FormatJSON) {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// ComponentLogger returns a child logger tagged with the component name.
func ComponentLogger(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
