// Package observability sets up logging, metrics and tracing.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. The returned level can be changed
// at runtime by the config watcher.
func NewLogger(environment, level string) (*zap.Logger, zap.AtomicLevel, error) {
	var zapConfig zap.Config

	if environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	atomic := zap.NewAtomicLevelAt(ParseLevel(level))
	zapConfig.Level = atomic

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, atomic, err
	}
	return logger, atomic, nil
}

// ParseLevel maps a level name to a zap level; unknown names mean info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
