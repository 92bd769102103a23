package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// fanoutHandler sends every record to each of its handlers.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, inner := range h {
		if inner.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, inner := range h {
		if !inner.Enabled(ctx, r.Level) {
			continue
		}
		err := inner.Handle(ctx, r.Clone())
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, inner := range h {
		out[i] = inner.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, inner := range h {
		out[i] = inner.WithGroup(name)
	}
	return out
}

// NewHandler writes colored output to stderr and, if mirror is not nil, the
// same records as plain text to mirror.
func NewHandler(stderr io.Writer, mirror io.Writer, verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	console := tint.NewHandler(stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	if mirror == nil {
		return console
	}
	return fanoutHandler{
		console,
		slog.NewTextHandler(mirror, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
}

// InitSlog installs the default logger, see NewHandler.
func InitSlog(verbose bool, mirror io.Writer) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, mirror, verbose))
	slog.SetDefault(logger)
	return logger
}
