// Package logging provides the process-wide structured logger.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger("info")
)

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// Init initializes the global structured logger at the given level.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(level)
}

// Logger returns the global logger instance.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message with alternating key/value pairs.
func Debug(msg string, kv ...any) {
	l := Logger()
	withFields(l.Debug(), kv).Msg(msg)
}

// Info logs an info message with alternating key/value pairs.
func Info(msg string, kv ...any) {
	l := Logger()
	withFields(l.Info(), kv).Msg(msg)
}

// Warn logs a warning message with alternating key/value pairs.
func Warn(msg string, kv ...any) {
	l := Logger()
	withFields(l.Warn(), kv).Msg(msg)
}

// Error logs an error message with alternating key/value pairs.
func Error(msg string, kv ...any) {
	l := Logger()
	withFields(l.Error(), kv).Msg(msg)
}

func withFields(e *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprintf("%v", kv[i])
		e = e.Interface(key, kv[i+1])
	}
	return e
}
