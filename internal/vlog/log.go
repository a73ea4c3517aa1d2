// Package vlog is the structured logger shared by every component of the
// consensus core. It uses the key/value call shape common to Go logging
// libraries (log.Info("msg", "key", val, ...)) and is built on log/slog,
// with fatih/color, go-colorable and go-isatty for terminal output.
package vlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Logger wraps slog.Logger with the Trace/Debug/Info/Warn/Error vocabulary
// used throughout the verifier, miner, chain processor and wallet scanner.
type Logger struct {
	inner *slog.Logger
}

// LevelTrace sits below slog's own Debug level; it is used for per-spend
// and per-event tracing that is too chatty for Debug.
const LevelTrace = slog.Level(-8)

var bold = color.New(color.Bold)

// New builds a Logger writing to w with slog's text handler. When w is a
// terminal it is wrapped with go-colorable so ANSI escapes in messages
// (such as Banner's bold text) render on every platform; the handler itself
// adds no color.
func New(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		handler = slog.NewTextHandler(colorable.NewColorable(f), opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{inner: slog.New(handler)}
}

// Default returns a logger writing to stderr at Info level.
func Default() *Logger {
	return New(os.Stderr, slog.LevelInfo)
}

func (l *Logger) with(level slog.Level, msg string, kv ...any) {
	l.inner.Log(context.Background(), level, msg, kv...)
}

func (l *Logger) Trace(msg string, kv ...any) { l.with(LevelTrace, msg, kv...) }
func (l *Logger) Debug(msg string, kv ...any) { l.with(slog.LevelDebug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.with(slog.LevelInfo, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.with(slog.LevelWarn, msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.with(slog.LevelError, msg, kv...) }

// With returns a child logger that always includes the given key/value
// pairs, mirroring slog.Logger.With.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}

// Banner prints a bold startup line; used by long-running components
// (the mining manager, the wallet scanner) when they start their driver
// goroutine.
func Banner(l *Logger, component string) {
	l.Info(bold.Sprintf("%s started", component), "at", time.Now().UTC().Format(time.RFC3339))
}
