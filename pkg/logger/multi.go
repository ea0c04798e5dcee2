package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanout forwards each record to every wrapped handler that accepts its level.
// overlap serve uses it to keep pretty terminal output while also writing
// JSON to --log-file.
type fanout []slog.Handler

// Multi combines loggers so that one call logs through all of them.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	f := make(fanout, 0, len(loggers))
	for _, l := range loggers {
		f = append(f, l.Handler())
	}
	return slog.New(f)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) derive(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
