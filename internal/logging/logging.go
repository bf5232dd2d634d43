// Package logging provides structured logging functionality using Go's slog package.
// It supports both text and JSON output formats, configurable log levels,
// and helpers for tagging records with scan, tool and target fields.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// File permissions for directories and log files.
	logDirPerm  = 0750
	logFilePerm = 0600
)

// LogLevel represents the available log levels.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the available log formats.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config holds logging configuration.
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"`
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: "stderr",
	}
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	var writer io.Writer
	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		// Assume it's a file path
		if err := os.MkdirAll(filepath.Dir(cfg.Output), logDirPerm); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, err
		}
		writer = file
	}
	return NewWithWriter(cfg, writer), nil
}

// NewWithWriter creates a logger that writes to w, ignoring cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(string(cfg.Level)),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	return NewWithWriter(DefaultConfig(), os.Stderr)
}

// Discard returns a logger that drops every record. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithComponent tags l with the component that owns it. A nil l uses the
// default logger.
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	return orDefault(l).With("component", component)
}

// WithScanID tags l with a scan id and its target.
func WithScanID(l *slog.Logger, scanID, target string) *slog.Logger {
	return orDefault(l).With("scan_id", scanID, "target", target)
}

// WithTool tags l with a tool name.
func WithTool(l *slog.Logger, tool string) *slog.Logger {
	return orDefault(l).With("tool", tool)
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return defaultLogger.Logger
	}
	return l
}

// Global logger instance - can be replaced for testing.
var defaultLogger = NewDefault()

// SetDefault sets the default logger instance and makes it the slog default.
func SetDefault(logger *Logger) {
	defaultLogger = logger
	slog.SetDefault(logger.Logger)
}

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, fields ...any) {
	defaultLogger.Debug(msg, fields...)
}
