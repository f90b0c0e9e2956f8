// Package logger builds the zap logger shared by the API server and the CLI.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stdout. debug lowers the level to Debug.
func New(debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return newConsole(os.Stdout, level, true)
}

// NewCLI returns a logger for interactive commands. It writes to stderr so
// command output on stdout stays clean, and only reports warnings unless debug is set.
func NewCLI(debug bool) *zap.Logger {
	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}
	return newConsole(os.Stderr, level, false)
}

func newConsole(w io.Writer, level zapcore.Level, caller bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	if caller {
		return zap.New(core, zap.AddCaller())
	}
	return zap.New(core)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
