package logger

import (
	"log/slog"
	"os"
	"sync"

	"buzzaar/internal/config"
)

var (
	singleton *slog.Logger
	once      sync.Once
)

// Init initializes the singleton logger from the provided config.
// Thread-safe and idempotent: the first call wins, subsequent calls
// return the same instance.
func Init(cfg config.Config) (*slog.Logger, error) {
	once.Do(func() {
		var level slog.Level
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}

		var handler slog.Handler
		switch cfg.LogFormat {
		case "text":
			handler = slog.NewTextHandler(os.Stdout, opts)
		case "json":
			fallthrough
		default:
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}

		singleton = slog.New(handler)
	})

	return singleton, nil
}

// L returns the singleton logger instance.
// Init must be called first, otherwise this returns nil.
func L() *slog.Logger {
	return singleton
}
