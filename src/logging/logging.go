// Package logging builds the structured logger from the logging section.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bytehawks/distillery/src/config"
)

// ParseLevel maps DEBUG, INFO, WARNING and ERROR (any case) to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "", "INFO":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger for cfg. verbose forces DEBUG. The returned closer
// releases the log file when output is "file" and is a no-op otherwise.
func New(cfg config.LoggingConfig, verbose bool) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stdout":
	case "file":
		if cfg.File == "" {
			return nil, nil, fmt.Errorf("logging: output file requires file")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: opening %s: %w", cfg.File, err)
		}
		w, closer = f, f
	default:
		return nil, nil, fmt.Errorf("logging: unknown output %q", cfg.Output)
	}

	h, err := NewHandler(w, cfg.Format, level)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return slog.New(h), closer, nil
}

// NewHandler returns a JSON or text handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

// Fallback returns a text logger on w for when the logging section itself
// cannot be used. verbose forces DEBUG.
func Fallback(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
