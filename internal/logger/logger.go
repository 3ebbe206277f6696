package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"example.com/notes-api/internal/stringsx"
)

// New returns a JSON logger in production and a human readable console logger
// everywhere else. Unknown levels fall back to info.
func New(env, level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if env != "production" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("env", env).
		Logger()
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(stringsx.Normalize(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
