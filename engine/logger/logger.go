// Package logger builds the zap loggers every engine component receives.
package logger

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the logger.
type Config struct {
	// Level is one of debug, info, warn, error; anything else is info.
	Level string
	// Format is json or console.
	Format string
	// Development makes DPanic panic and enables stack traces on warnings.
	Development bool
	Service     string
	Plugin      string
}

// New creates a logger writing to stderr.
//
// Parameters:
//   - cfg: the logger configuration
//
// Returns:
//   - *zap.Logger: the logger carrying service and plugin fields
//   - error: if zap rejects the configuration
func New(cfg Config) (*zap.Logger, error) {
	config := zap.Config{
		Level:            ParseLevel(cfg.Level),
		Development:      cfg.Development,
		Encoding:         encoding(cfg.Format),
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	log, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return log.With(fields(cfg)...), nil
}

// NewWithCore creates a logger on a caller-supplied sink, used where output must be captured.
func NewWithCore(cfg Config, ws zapcore.WriteSyncer) *zap.Logger {
	var enc zapcore.Encoder
	if encoding(cfg.Format) == "json" {
		enc = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	}
	options := []zap.Option{}
	if cfg.Development {
		options = append(options, zap.Development())
	}
	return zap.New(zapcore.NewCore(enc, ws, ParseLevel(cfg.Level)), options...).With(fields(cfg)...)
}

// Must is New for main packages. It exits on failure.
func Must(cfg Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	return log
}

// ParseLevel converts a level name to zap.AtomicLevel.
func ParseLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

func encoding(format string) string {
	if format == "json" {
		return "json"
	}
	return "console"
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
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
	}
}

func fields(cfg Config) []zap.Field {
	fields := []zap.Field{zap.String("service", cfg.Service)}
	if cfg.Plugin != "" {
		fields = append(fields, zap.String("plugin", cfg.Plugin))
	}
	return fields
}
