// Package logger builds the process-wide structured logger: a zap core
// behind the standard slog front, so call sites stay on log/slog.
package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New returns a zap-backed slog logger at the given level ("debug",
// "info", "warn", "error") plus a flush function for shutdown. isProd
// selects JSON output; otherwise the console encoder is used.
func New(level string, isProd bool) (*slog.Logger, func() error) {
	var config zap.Config
	if isProd {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zapLogger := zap.Must(config.Build())
	return slog.New(zapslog.NewHandler(zapLogger.Core())), zapLogger.Sync
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
