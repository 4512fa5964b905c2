// Package logger wraps zap construction so the rest of the application
// receives a ready *zap.Logger.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger owns the process-wide zap instance.
type Logger struct {
	// Log is the configured zap logger. Nop until Init succeeds.
	Log *zap.Logger
}

// New returns a Logger with a no-op zap instance so callers may log
// safely before Init.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds the production zap logger at the given level ("Debug",
// "Info", ...). It replaces the no-op instance on success.
func (l *Logger) Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = log
	return nil
}
