// Package logger builds the process-wide zap.Logger and exposes its level
// as an AtomicLevel so config hot-reload can adjust verbosity without
// rebuilding the logger (and without touching anything shard-owned).
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Handle bundles a logger with the atomic level backing it, so callers can
// change verbosity at runtime via SetLevel.
type Handle struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New creates a configured logger.
// level: "debug", "info", "warn", "error"
// encoding: "json" (production) or "console" (development)
func New(level string, encoding string) *Handle {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	atomicLevel := zap.NewAtomicLevelAt(lvl)

	cfg := zap.Config{
		Level:       atomicLevel,
		Development: encoding == "console",
		Encoding:    encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	built, err := cfg.Build()
	if err != nil {
		// if logger fails, fall back to basic stdout and exit
		os.Stdout.WriteString("FAILED TO INIT LOGGER: " + err.Error())
		os.Exit(1)
	}

	return &Handle{Logger: built, level: atomicLevel}
}

// SetLevel changes the logger's verbosity in place. Unknown level strings
// are ignored, leaving the previous level active.
func (h *Handle) SetLevel(level string) {
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		h.level.SetLevel(lvl)
	}
}
