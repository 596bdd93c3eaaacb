package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tuncerburak97/vitrin/internal/config"
)

// New builds the process logger. "json" writes raw JSON lines, anything
// else goes through zerolog's console writer. Unknown levels fall back to
// info.
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	logLevel, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		logLevel = zerolog.InfoLevel
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(logLevel).With().Timestamp().Logger()
}
