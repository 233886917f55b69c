// Package debug holds the process logger shared by statements, pipelines and the CLI.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger  = newLogger(os.Stderr, false)
	enabled bool
	mu      sync.RWMutex
)

// newLogger writes text records to w. Without debugging only warnings and
// errors are kept.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init sets up the logger on stderr. With enable set, debug records are written too.
func Init(enable bool) {
	InitWriter(os.Stderr, enable)
}

// InitWriter is Init with a custom destination.
func InitWriter(w io.Writer, enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	logger = newLogger(w, enable)
}

// SetLogger replaces the logger, e.g. with the host application's. A nil
// logger restores the default stderr logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = newLogger(os.Stderr, enabled)
	}
	logger = l
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
