package log

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Level  = zapcore.Level
	Field  = zap.Field
	Logger = zap.Logger
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Uint64   = zap.Uint64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
	Any      = zap.Any
)

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop()
)

func ErrorField(err error) Field {
	return zap.Error(err)
}

func ParseLevel(l string) (Level, error) {
	return zapcore.ParseLevel(l)
}

// New creates a json logger writing to w.
func New(w io.Writer, level Level) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// DevLogger creates a human readable console logger writing to w.
func DevLogger(w io.Writer, level Level) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// Init installs the default logger according to format ("json" or "text").
func Init(format, level string) {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = InfoLevel
	}
	if format == "json" {
		ResetDefault(New(os.Stderr, lvl))
	} else {
		ResetDefault(DevLogger(os.Stderr, lvl))
	}
}

func ResetDefault(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Debug(msg string, fields ...Field) { Default().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { Default().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { Default().Warn(msg, fields...) }
func Error(msg string, fields ...Field) { Default().Error(msg, fields...) }

func Sync() error {
	return Default().Sync()
}
