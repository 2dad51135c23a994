// Package logger configures the process-wide zerolog setup.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger. Debug mode lowers the level so the per-event
// emission logs become visible.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
