/*
logging.go - Structured logging for batch runs and the API

PURPOSE:
  Builds the process logger (log/slog) from LoggingConfig and threads a
  run ID through context so every record emitted during one analysis run
  carries run_id.

OUTPUT:
  stdout (default), file, or both. JSON by default; "text" for local
  development.

USAGE:
  logger, closeFn, err := logging.New(cfg.Logging)
  defer closeFn()
  slog.SetDefault(logger)

  ctx = logging.WithRunID(ctx, runID)
  logging.FromContext(ctx).Info("segment analysis completed", "rows", n)
*/
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// RunIDKey is the attribute name for the run ID.
const RunIDKey = "run_id"

type contextKey string

const runIDContextKey contextKey = "run_id"

// Config selects the level, format and destination of log output.
type Config struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// New creates a logger from cfg. The returned func closes the log file,
// if one was opened.
func New(cfg Config) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	var out io.Writer
	closeFn := noop
	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open log file: %w", err)
		}
		closeFn = f.Close
		out = f
		if strings.EqualFold(cfg.Output, "both") {
			out = io.MultiWriter(os.Stdout, f)
		}
	default:
		out = os.Stdout
	}

	return NewWithWriter(out, cfg), closeFn, nil
}

// NewWithWriter creates a logger writing to w. Used by tests.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(&runHandler{Handler: h})
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// =============================================================================
// RUN ID PROPAGATION
// =============================================================================

// runHandler adds run_id from the context to every record.
type runHandler struct {
	slog.Handler
}

func (h *runHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RunID(ctx); id != "" {
		r.AddAttrs(slog.String(RunIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{Handler: h.Handler.WithGroup(name)}
}

// WithRunID returns a context carrying the run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunID returns the run ID in ctx, or "".
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDContextKey).(string)
	return id
}

// FromContext returns the default logger bound to the context's run ID.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := RunID(ctx); id != "" {
		return logger.With(RunIDKey, id)
	}
	return logger
}
