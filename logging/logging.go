// Package logging builds the process logger. Records go through zap: a JSON
// core writing to a rotated file and a console core on stderr. The zap core
// is exposed as a log/slog handler so every component keeps taking *slog.Logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log output.
type Config struct {
	Level      string // debug, info, warn or error
	Format     string // console or json, for the stderr core
	File       string // rotated JSON log file; empty disables it
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns console logging at info level without a file.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// Logger is a slog.Logger backed by zap cores.
type Logger struct {
	*slog.Logger
	zap     *zap.Logger
	rotator *lumberjack.Logger
}

// New builds a logger writing to stderr and, when configured, a rotated file.
func New(cfg Config) (*Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg Config, console io.Writer) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var consoleEncoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		consoleEncoder = jsonEncoder
	case "console", "":
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(console)), level),
	}

	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return &Logger{
		Logger:  slog.New(zapslog.NewHandler(core, zapslog.WithCaller(true))),
		zap:     zap.New(core),
		rotator: rotator,
	}, nil
}

// Close flushes buffered records and closes the log file.
func (l *Logger) Close() error {
	// Syncing a terminal returns EINVAL on some platforms
	_ = l.zap.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}
