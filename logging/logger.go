package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how NewLogger builds its cores.
type Config struct {
	// Development selects the colored console encoder and debug level.
	Development bool

	// Level is the minimum level. Empty means debug in development and info
	// otherwise.
	Level string

	// FilePath is the rotated JSON log file. Empty disables file output.
	FilePath string

	// File tunes rotation. Zero values use the defaults.
	File FileWriterConfig
}

// Logger wraps zap.Logger and redacts sensitive values (API keys, the web
// UI password) from every field before it is written.
//
// Example:
//
//	logger, err := logging.NewLogger(logging.Config{Development: true, FilePath: "app.log"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("server started", zap.String("addr", "localhost:3000"))
type Logger struct {
	zap   *zap.Logger
	level zapcore.Level
}

// NewLogger creates a Logger that writes to stdout and, when FilePath is set,
// to a rotated JSON file.
func NewLogger(cfg Config) (*Logger, error) {
	def := zapcore.InfoLevel
	if cfg.Development {
		def = zapcore.DebugLevel
	}
	level := ParseLevel(cfg.Level, def)

	console := zapcore.Lock(zapcore.AddSync(os.Stdout))
	var file zapcore.WriteSyncer
	if cfg.FilePath != "" {
		w, err := NewFileWriter(cfg.FilePath, cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = w
	}

	return NewLoggerWithCore(NewTeeCore(level, console, file, cfg.Development), level), nil
}

// NewLoggerWithCore wraps an existing core. Tests use it with zaptest/observer
// style cores or buffers.
func NewLoggerWithCore(core zapcore.Core, level zapcore.Level) *Logger {
	return &Logger{
		zap:   zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		level: level,
	}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop(), level: zapcore.FatalLevel}
}

// Sync flushes buffered entries. Call before exit.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Level returns the minimum enabled level.
func (l *Logger) Level() zapcore.Level {
	return l.level
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

// Info logs at InfoLevel.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

// Warn logs at WarnLevel.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

// Error logs at ErrorLevel.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Infof logs a formatted message at InfoLevel. Arguments are not redacted;
// use structured fields for anything that may carry a secret.
func (l *Logger) Infof(template string, args ...interface{}) {
	l.zap.Sugar().Infof(template, args...)
}

// With returns a child logger that adds fields to every entry.
//
// Example:
//
//	reqLogger := logger.With(zap.String("request_id", id))
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(redactFields(fields)...), level: l.level}
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), level: l.level}
}

// Zap returns the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// redactFields filters sensitive data from fields before they are encoded.
func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	if f.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(f.String); redacted != f.String {
			return zap.String(f.Key, redacted)
		}
	}
	if f.Type == zapcore.ErrorType {
		if err, ok := f.Interface.(error); ok && err != nil {
			if redacted := RedactSensitiveData(err.Error()); redacted != err.Error() {
				return zap.String(f.Key, redacted)
			}
		}
	}
	return f
}
