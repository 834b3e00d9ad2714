// Package logger builds the zerolog loggers shared by the CLI and the server.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger at the given level writing to stderr.
// Unknown levels fall back to info; format "json" disables the console writer.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// FromContext returns the logger attached to ctx with zerolog's WithContext,
// or fallback when there is none
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return fallback
	}
	return *l
}
