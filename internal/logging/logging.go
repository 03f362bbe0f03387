// Package logging holds the process-wide logger shared by the asset pipeline.
package logging

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger installs the logger used by every package of the pipeline.
// By default nothing is logged. Passing nil restores the silent default.
//
// Levels:
//   - Debug: queue traffic, source loads, shader dumps
//   - Info: lifecycle (rebuild counts, backend selection)
//   - Warn: recoverable content problems (unknown modifier, odd palette)
//   - Error: malformed expressions, missing sources
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// NewTextLogger returns a text logger writing to w at Info level, or Debug
// when verbose is set.
func NewTextLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
