// Package logger provides the injected zap-backed log sink used by every
// SiteProbe component.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"SiteProbe/pkg/utils"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

// Options configures a Logger.
type Options struct {
	Dir     string // directory holding the log file (default "logs")
	File    string // log file name (default "automation.log")
	Level   string // DEBUG, INFO, WARN or ERROR (default INFO)
	Console bool   // also write to stdout
	Append  bool   // keep previous runs instead of truncating
}

// Logger wraps zap.SugaredLogger with printf-style helpers.
type Logger struct {
	sugar    *zap.SugaredLogger
	filePath string
}

// New creates the run log. The file is truncated unless opts.Append is set,
// so each run starts with a clean audit trail.
func New(opts Options) (*Logger, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.File == "" {
		opts.File = "automation.log"
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}
	logPath := filepath.Join(opts.Dir, opts.File)

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if opts.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	logFile, err := os.OpenFile(logPath, flags, 0644)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	level := ParseLevel(opts.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(logFile), level),
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level))
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))

	return &Logger{
		sugar:    zapLogger.Sugar(),
		filePath: logPath,
	}, nil
}

// FromZap wraps an existing zap logger, e.g. one built on zaptest/observer.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.WithOptions(zap.AddCallerSkip(2)).Sugar()}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// ParseLevel maps a level name to a zap level, defaulting to INFO.
func ParseLevel(name string) zapcore.Level {
	switch Level(strings.ToUpper(strings.TrimSpace(name))) {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) log(level Level, message string) {
	if l == nil {
		return
	}
	message = utils.SanitizeLog(message)

	switch level {
	case DEBUG:
		l.sugar.Debug(message)
	case INFO:
		l.sugar.Info(message)
	case WARN:
		l.sugar.Warn(message)
	case ERROR:
		l.sugar.Error(message)
	}
}

func (l *Logger) Debug(format string, v ...any) {
	l.log(DEBUG, fmt.Sprintf(format, v...))
}

func (l *Logger) Info(format string, v ...any) {
	l.log(INFO, fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(format string, v ...any) {
	l.log(WARN, fmt.Sprintf(format, v...))
}

func (l *Logger) Error(format string, v ...any) {
	l.log(ERROR, fmt.Sprintf(format, v...))
}

// Path returns the log file path, empty for loggers not backed by a file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// GetLastLines returns the last n lines of the log file.
func (l *Logger) GetLastLines(n int) string {
	if l.Path() == "" {
		return ""
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return "Error reading log file"
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}
