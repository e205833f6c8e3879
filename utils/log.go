package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int32

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps a flag value to a level. Unknown names fall back to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "critical":
		return CRITICAL
	default:
		return INFO
	}
}

// Logger is a printf-style leveled logger on top of zap. TRACE and CRITICAL
// have no zap counterpart and are written at debug and error level with a
// marker field.
type Logger struct {
	minLevel *atomic.Int32
	z        *zap.SugaredLogger
	file     *os.File
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newLogger(ws zapcore.WriteSyncer, minLevel LogLevel, file *os.File) *Logger {
	core := zapcore.NewCore(newEncoder(), ws, zapcore.DebugLevel)
	lvl := new(atomic.Int32)
	lvl.Store(int32(minLevel))
	return &Logger{
		minLevel: lvl,
		z:        zap.New(core).Sugar(),
		file:     file,
	}
}

// NewFileLogger appends to filePath and optionally mirrors every line to stdout.
func NewFileLogger(filePath string, minLevel LogLevel, alsoStdout bool) (*Logger, error) {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ws := zapcore.AddSync(f)
	if alsoStdout {
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.Lock(os.Stdout))
	}
	return newLogger(ws, minLevel, f), nil
}

// NewLogger writes to w.
func NewLogger(w io.Writer, minLevel LogLevel) *Logger {
	return newLogger(zapcore.AddSync(w), minLevel, nil)
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	lvl := new(atomic.Int32)
	lvl.Store(int32(CRITICAL + 1))
	return &Logger{minLevel: lvl, z: zap.NewNop().Sugar()}
}

func (l *Logger) Close() error {
	_ = l.z.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) SetMinLevel(level LogLevel) {
	l.minLevel.Store(int32(level))
}

func (l *Logger) Enabled(level LogLevel) bool {
	return level >= LogLevel(l.minLevel.Load())
}

// With returns a child logger that adds key/value fields to every line.
// The child shares the level and the underlying file.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{
		minLevel: l.minLevel,
		z:        l.z.With(keysAndValues...),
	}
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	line := fmt.Sprintf(msg, args...)
	switch level {
	case TRACE:
		l.z.Debugw(line, "trace", true)
	case DEBUG:
		l.z.Debug(line)
	case INFO:
		l.z.Info(line)
	case WARN:
		l.z.Warn(line)
	case ERROR:
		l.z.Error(line)
	default:
		l.z.Errorw(line, "critical", true)
	}
}

func (l *Logger) Trace(msg string, args ...any)    { l.log(TRACE, msg, args...) }
func (l *Logger) Debug(msg string, args ...any)    { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...any)     { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)     { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...any)    { l.log(ERROR, msg, args...) }
func (l *Logger) Critical(msg string, args ...any) { l.log(CRITICAL, msg, args...) }
