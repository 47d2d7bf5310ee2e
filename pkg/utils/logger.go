package utils

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the verbosity level of logging
type LogLevel int

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

// String returns a string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case ErrorLevel:
		return "ERROR"
	case WarningLevel:
		return "WARNING"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	case TraceLevel:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a level name to a LogLevel
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarningLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "trace":
		return TraceLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", name)
	}
}

// zapLevel maps a LogLevel onto the closest zap level. Trace has no zap
// counterpart and is emitted at debug.
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case InfoLevel:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Logger is a leveled, indentable logger backed by zap
type Logger struct {
	Level      LogLevel
	Prefix     string
	IndentSize int
	base       *zap.Logger
	indent     atomic.Int32 // Current indentation level, shared by goroutines
}

// NewLogger creates a new console logger on stdout with the specified verbosity level
func NewLogger(level LogLevel) *Logger {
	return newConsoleLogger(level, zapcore.Lock(os.Stdout))
}

// NewFileLogger creates a new logger that writes JSON lines to a file
func NewFileLogger(level LogLevel, filename string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.OutputPaths = []string{filename}
	cfg.Sampling = nil

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build file logger: %w", err)
	}
	return NewZapLogger(base, level), nil
}

// NewZapLogger wraps an existing zap logger
func NewZapLogger(base *zap.Logger, level LogLevel) *Logger {
	return &Logger{
		Level:      level,
		IndentSize: 2,
		base:       base,
	}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return NewZapLogger(zap.NewNop(), ErrorLevel)
}

func newConsoleLogger(level LogLevel, out zapcore.WriteSyncer) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, level.zapLevel())
	return NewZapLogger(zap.New(core), level)
}

// Zap exposes the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// SetPrefix sets a prefix for all log messages
func (l *Logger) SetPrefix(prefix string) {
	l.Prefix = prefix
}

// Indent increases the indentation level
func (l *Logger) Indent() {
	if l != nil {
		l.indent.Add(1)
	}
}

// Outdent decreases the indentation level
func (l *Logger) Outdent() {
	if l == nil {
		return
	}
	for {
		cur := l.indent.Load()
		if cur == 0 || l.indent.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// log logs a message at the specified level
func (l *Logger) log(level LogLevel, category string, format string, args ...interface{}) {
	if l == nil || level > l.Level {
		return
	}

	var builder strings.Builder

	if l.Prefix != "" {
		builder.WriteString(fmt.Sprintf("%s: ", l.Prefix))
	}

	if indent := int(l.indent.Load()); indent > 0 {
		builder.WriteString(strings.Repeat(" ", indent*l.IndentSize))
	}

	builder.WriteString(fmt.Sprintf(format, args...))

	var fields []zap.Field
	if category != "" {
		fields = append(fields, zap.String("category", category))
	}

	switch level {
	case ErrorLevel:
		l.base.Error(builder.String(), fields...)
	case WarningLevel:
		l.base.Warn(builder.String(), fields...)
	case InfoLevel:
		l.base.Info(builder.String(), fields...)
	default:
		l.base.Debug(builder.String(), fields...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, "", format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(WarningLevel, "", format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, "", format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, "", format, args...)
}

// Trace logs a trace message (highest verbosity)
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(TraceLevel, "", format, args...)
}

// Circuit logs information about circuit state
func (l *Logger) Circuit(format string, args ...interface{}) {
	l.log(DebugLevel, "circuit", format, args...)
}

// Connection logs accepted and rejected wiring changes
func (l *Logger) Connection(format string, args ...interface{}) {
	l.log(DebugLevel, "connection", format, args...)
}

// Evaluation logs evaluation passes
func (l *Logger) Evaluation(format string, args ...interface{}) {
	l.log(TraceLevel, "evaluation", format, args...)
}

// Decision logs information about decision making in the solver
func (l *Logger) Decision(format string, args ...interface{}) {
	l.log(DebugLevel, "decision", format, args...)
}

// Backtrack logs information about backtracking
func (l *Logger) Backtrack(format string, args ...interface{}) {
	l.log(DebugLevel, "backtrack", format, args...)
}

// Implication logs information about implication operations
func (l *Logger) Implication(format string, args ...interface{}) {
	l.log(TraceLevel, "implication", format, args...)
}
