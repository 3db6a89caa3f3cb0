package osc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"
)

// NewLogger returns a production zap logger with the specified level, or a
// no-op logger for LogLevelNone.
func NewLogger(logLevel string) (*zap.Logger, error) {
	if logLevel == LogLevelNone || logLevel == "" {
		return zap.NewNop(), nil
	}
	zapConfig := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

// loggerOr returns l, or a no-op logger when l is nil.
func loggerOr(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
