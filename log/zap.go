package log

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// Logger is a thin wrapper around zap.Logger. The rest of the code base
// uses this package instead of importing zap directly.
type (
	Logger struct {
		l     *zap.Logger
		level Level
	}
	Level  = zapcore.Level
	Field  = zap.Field
	Option = zap.Option
)

const (
	DebugLevel = zap.DebugLevel
	InfoLevel  = zap.InfoLevel
	WarnLevel  = zap.WarnLevel
	ErrorLevel = zap.ErrorLevel
	FatalLevel = zap.FatalLevel
)

var (
	Skip       = zap.Skip
	Binary     = zap.Binary
	Bool       = zap.Bool
	Duration   = zap.Duration
	Float      = zap.Float64
	Int        = zap.Int
	Uint       = zap.Uint
	Uint32     = zap.Uint32
	String     = zap.String
	Time       = zap.Time
	Any        = zap.Any
	ErrorField = zap.Error

	WithCaller    = zap.WithCaller
	AddStacktrace = zap.AddStacktrace
	AddCallerSkip = zap.AddCallerSkip
)

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

// New creates a json logger writing to w with messages >= level.
// Filter rules (see SetFilterRules) are evaluated against named loggers
// the zapfilter way.
func New(w io.Writer, level Level, opts ...Option) *Logger {
	return newLogger(w, level, prodEncoder(), opts...)
}

// DevLogger creates a console logger for interactive use.
func DevLogger(w io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return newLogger(w, level, zapcore.NewConsoleEncoder(cfg), opts...)
}

func prodEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func newLogger(w io.Writer, level Level, enc zapcore.Encoder, opts ...Option) *Logger {
	if w == nil {
		w = os.Stderr
	}
	var core zapcore.Core = zapcore.NewCore(enc, zapcore.AddSync(w), level)
	if filterRules != "" {
		core = zapfilter.NewFilteringCore(core, zapfilter.MustParseRules(filterRules))
	}
	return &Logger{l: zap.New(core, opts...), level: level}
}

// filterRules holds zapfilter rules applied to every logger created
// afterwards, e.g. "debug:telemetry.* info:*".
var filterRules string

func SetFilterRules(rules string) {
	filterRules = rules
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level}
}

func (l *Logger) Level() Level                      { return l.level }
func (l *Logger) Debug(msg string, fields ...Field) { l.l.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.l.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.l.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.l.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.l.Fatal(msg, fields...) }
func (l *Logger) Sugar() *zap.SugaredLogger         { return l.l.Sugar() }
func (l *Logger) Sync() error                       { return l.l.Sync() }
func (l *Logger) DebugEnabled() bool                { return l.level <= DebugLevel }
func (l *Logger) Debugf(tmpl string, args ...any)   { l.l.Sugar().Debugf(tmpl, args...) }
func (l *Logger) Fatalf(tmpl string, args ...any)   { l.l.Sugar().Fatalf(tmpl, args...) }
func (l *Logger) Debugw(msg string, kv ...any)      { l.l.Sugar().Debugw(msg, kv...) }

var std = DevLogger(os.Stderr, InfoLevel)

func Default() *Logger { return std }

// ResetDefault replaces the package level default logger.
// Not safe for concurrent use.
func ResetDefault(l *Logger) {
	std = l
}

func Debug(msg string, fields ...Field) { std.l.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { std.l.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { std.l.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { std.l.Error(msg, fields...) }
func Fatal(msg string, fields ...Field) { std.l.Fatal(msg, fields...) }
func Fatalf(tmpl string, args ...any)   { std.l.Sugar().Fatalf(tmpl, args...) }
func Debugw(msg string, kv ...any)      { std.l.Sugar().Debugw(msg, kv...) }

type ctxKey struct{}

// AddToContext stores a logger in the context.
func AddToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// GetFromContext returns the logger stored in ctx or the default logger.
func GetFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return std
}
