// Package logger builds the *slog.Logger instances handed to every overlap
// component. Service logs are plain text or JSON; interactive CLI runs use the
// charmbracelet/log handler.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a logger from the given options. JSON wins over pretty when both
// are set.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	w := c.writer()

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))

	case c.pretty:
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
			TimeFormat:      time.TimeOnly,
		}))

	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}
}

// Nop returns a logger that drops every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func (c *config) writer() io.Writer {
	switch len(c.writers) {
	case 0:
		return os.Stdout
	case 1:
		return c.writers[0]
	default:
		return io.MultiWriter(c.writers...)
	}
}
