package util

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger based on the LOG_LEVEL environment
// variable. Supported levels: debug, info, warn, error.
//
// Logs always go to stderr: stdout is reserved for the RPC stream when the
// server runs in stdio mode.
func NewLogger() *zap.Logger {
	level := zapcore.InfoLevel
	if logLevel, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch strings.ToLower(logLevel) {
		case "debug":
			level = zapcore.DebugLevel
		case "info":
			level = zapcore.InfoLevel
		case "warn":
			level = zapcore.WarnLevel
		case "error":
			level = zapcore.ErrorLevel
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
