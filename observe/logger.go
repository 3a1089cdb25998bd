package observe

import (
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across metacache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging is best-effort and never panics.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// With returns a logger that attaches fields to every entry.
	With(fields ...Field) Logger
}

// Field is one key/value pair of a log entry. Error values are rendered
// with Error().
type Field struct {
	Key   string
	Value any
}

// F is shorthand for Field{Key: key, Value: value}.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type nopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(context.Context, string, ...Field) {}
func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (l nopLogger) With(...Field) Logger                  { return l }

// redactedKeys are masked in every entry, compared case-insensitively.
// Connection strings carry credentials, so dsn is masked with the secrets.
var redactedKeys = map[string]bool{
	"dsn":        true,
	"password":   true,
	"secret":     true,
	"token":      true,
	"api_key":    true,
	"apikey":     true,
	"credential": true,
	"value":      true,
}

const redactedValue = "[REDACTED]"

func isRedactedField(key string) bool {
	return redactedKeys[strings.ToLower(key)]
}

// ParseLevel maps debug, info, warn and error to a zap level. Anything else
// is info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// NewLogger returns a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger writing one entry per line to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(jsonEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		ParseLevel(level),
	)
	return NewZapLogger(zap.New(core))
}

// NewZapProduction builds a production zap logger at the given level.
func NewZapProduction(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}

// zapLogger adapts a *zap.Logger to Logger.
type zapLogger struct {
	z *zap.Logger
}

// NewZapLogger returns a Logger backed by z. Redacted keys are masked.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &zapLogger{z: z}
}

func (l *zapLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.z.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.z.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.z.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.z.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(zapFields(fields)...)}
}

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case nil:
			out = append(out, zap.Skip())
		case error:
			if isRedactedField(f.Key) {
				out = append(out, zap.String(f.Key, redactedValue))
			} else {
				out = append(out, zap.NamedError(f.Key, v))
			}
		default:
			if isRedactedField(f.Key) {
				out = append(out, zap.String(f.Key, redactedValue))
			} else {
				out = append(out, zap.Any(f.Key, v))
			}
		}
	}
	return out
}

var _ Logger = (*zapLogger)(nil)
