// Package hamslog provides the structured logger shared by the hams
// packages and the sample daemon. It wraps go.uber.org/zap behind a
// small named-logger facade, auto-selecting console or JSON encoding and
// optionally teeing error-level logs to Rollbar.
package hamslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Level mirrors zapcore.Level so callers never import zap directly.
type Level zapcore.Level

const (
	// DebugLevel is for voluminous output, usually disabled in production.
	DebugLevel Level = Level(zapcore.DebugLevel)
	// InfoLevel is the default priority.
	InfoLevel Level = Level(zapcore.InfoLevel)
	// WarnLevel logs don't need individual human review.
	WarnLevel Level = Level(zapcore.WarnLevel)
	// ErrorLevel logs are high priority.
	ErrorLevel Level = Level(zapcore.ErrorLevel)
)

// Format selects the log encoding.
type Format int8

const (
	// JSON prints logs as JSON, for ingestion by a log pipeline.
	JSON Format = iota
	// Console prints human readable text.
	Console
	// Auto picks Console on a terminal, JSON otherwise.
	Auto
)

type (
	// Option configures a Logger.
	Option interface {
		apply(*Logger)
	}
	optionFunc func(*Logger)
)

func (f optionFunc) apply(l *Logger) { f(l) }

// WithName sets the logger's name.
func WithName(name string) Option {
	return optionFunc(func(l *Logger) { l.name = name })
}

// WithLevel sets the minimum level logged.
func WithLevel(level Level) Option {
	return optionFunc(func(l *Logger) { l.level = level })
}

// WithFormat sets the encoding.
func WithFormat(format Format) Option {
	return optionFunc(func(l *Logger) { l.format = format })
}

// WithTags attaches environment/version metadata, consulted by the
// Rollbar tee when one is configured.
func WithTags(tags map[string]string) Option {
	return optionFunc(func(l *Logger) { l.tags = tags })
}

// WithRollbar enables a Rollbar tee for logs at or above minLevel.
func WithRollbar(token string, minLevel Level) Option {
	return optionFunc(func(l *Logger) {
		l.rollbarToken = token
		l.rollbarMinLevel = minLevel
	})
}

// Logger is the project-wide structured logger.
type Logger struct {
	wrapped *zap.SugaredLogger
	name    string
	level   Level
	format  Format
	tags    map[string]string

	rollbarToken    string
	rollbarMinLevel Level
}

// New builds a Logger from the given options.
func New(options ...Option) *Logger {
	l := &Logger{
		format:          Auto,
		level:           InfoLevel,
		rollbarMinLevel: ErrorLevel,
	}
	for _, opt := range options {
		opt.apply(l)
	}
	if l.name == "" {
		l.name = "root"
	}
	l.init()
	return l
}

// NewNop returns a Logger that discards everything, for tests and
// embedders that don't configure logging.
func NewNop() *Logger {
	return &Logger{wrapped: zap.NewNop().Sugar()}
}

func (l *Logger) init() {
	atom := zap.NewAtomicLevel()
	atom.SetLevel(zapcore.Level(l.level))
	out := zapcore.Lock(os.Stdout)

	cores := []zapcore.Core{zapcore.NewCore(l.encoder(), out, atom)}
	if l.rollbarToken != "" {
		cores = append(cores, newRollbarCore(l.rollbarToken, l.tags["environment"], l.tags["version"], l.rollbarMinLevel))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	l.wrapped = base.Named(l.name).Sugar()
}

func (l *Logger) encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	switch l.format {
	case Console:
		cfg.TimeKey = ""
		return zapcore.NewConsoleEncoder(cfg)
	case Auto:
		if isTerminal(os.Stdout) {
			cfg.TimeKey = ""
			return zapcore.NewConsoleEncoder(cfg)
		}
		return zapcore.NewJSONEncoder(cfg)
	default:
		return zapcore.NewJSONEncoder(cfg)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Named returns a sub-logger scoped under name, sharing the same sinks.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, wrapped: l.wrapped.Named(name)}
}

// Info logs at info level.
func (l *Logger) Info(msg string) { l.wrapped.Info(msg) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string) { l.wrapped.Warn(msg) }

// Debug logs at debug level.
func (l *Logger) Debug(msg string) { l.wrapped.Debug(msg) }

// Error logs at error level.
func (l *Logger) Error(msg string) { l.wrapped.Error(msg) }

// Infof logs a formatted message at info level.
func (l *Logger) Infof(template string, args ...interface{}) { l.wrapped.Infof(template, args...) }

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(template string, args ...interface{}) { l.wrapped.Warnf(template, args...) }

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(template string, args ...interface{}) { l.wrapped.Errorf(template, args...) }

// Infow logs a message with structured key/value context.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.wrapped.Infow(msg, keysAndValues...)
}

// Warnw logs a message with structured key/value context.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.wrapped.Warnw(msg, keysAndValues...)
}

// Errorw logs a message with structured key/value context.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.wrapped.Errorw(msg, keysAndValues...)
}

// Flush drains any buffered log entries.
func (l *Logger) Flush() {
	_ = l.wrapped.Sync()
}
