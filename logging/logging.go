// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerConfig returns the console logger config. Logs go to stderr so
// that stdout stays free for command output.
func NewLoggerConfig(debug bool) zap.Config {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: !debug,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a named console logger at Info level, or Debug level
// when debug is set.
func NewLogger(name string, debug bool) (*zap.Logger, error) {
	logger, err := NewLoggerConfig(debug).Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(name), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
