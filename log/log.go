package log

// Thin wrapper around zap. Provides a package level default logger plus
// named sub loggers whose output can be restricted via zapfilter rules
// (e.g. "debug:store,session info:*").

import (
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type (
	Field  = zap.Field
	Level  = zapcore.Level
	Option = zap.Option

	Logger struct {
		l     *zap.Logger
		level Level
	}
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

// re-exported field constructors
var (
	Any        = zap.Any
	String     = zap.String
	Int        = zap.Int
	Int32      = zap.Int32
	Uint32     = zap.Uint32
	Float64    = zap.Float64
	Bool       = zap.Bool
	Duration   = zap.Duration
	Time       = zap.Time
	ErrorField = zap.Error

	WithCaller    = zap.WithCaller
	AddCallerSkip = zap.AddCallerSkip
)

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

func New(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, prodEncoder(), "", opts...)
}

// DevLogger uses a console encoder for local development.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(writer, level, devEncoder(), "", opts...)
}

// NewWithFilters behaves like New but additionally applies zapfilter rules
// so individual named loggers can run at different levels.
func NewWithFilters(writer io.Writer, level Level, rules string, opts ...Option) *Logger {
	return newLogger(writer, level, prodEncoder(), rules, opts...)
}

//nolint:whitespace // editor/linter issue
func newLogger(
	writer io.Writer, level Level, enc zapcore.Encoder, rules string, opts ...Option,
) *Logger {
	if writer == nil {
		writer = os.Stderr
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(writer), level)
	if rules != "" {
		if filterFunc, err := zapfilter.ParseRules(rules); err == nil {
			core = zapfilter.NewFilteringCore(core, filterFunc)
		}
	}
	return &Logger{l: zap.New(core, opts...), level: level}
}

func prodEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func devEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level}
}

func (l *Logger) Level() Level                     { return l.level }
func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }
func (l *Logger) Sync() error                       { return l.l.Sync() }

var (
	std     = DevLogger(os.Stderr, InfoLevel)
	mu      sync.Mutex
	defined = map[string]*Logger{}
)

func Default() *Logger { return std }

// ResetDefault replaces the default logger. Named loggers handed out before
// the reset keep their old backend; callers should acquire them afterwards.
func ResetDefault(l *Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	std = l
	defined = map[string]*Logger{}
}

// GetLogger returns a memoized named child of the default logger.
func GetLogger(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if ret, ok := defined[name]; ok {
		return ret
	}
	ret := std.Named(name)
	defined[name] = ret
	return ret
}

func Debug(msg string, fields ...Field) { std.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { std.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { std.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { std.Error(msg, fields...) }
func Fatal(msg string, fields ...Field) { std.Fatal(msg, fields...) }

func Sync() error {
	if std != nil {
		return std.Sync()
	}
	return errors.New("no default logger")
}
