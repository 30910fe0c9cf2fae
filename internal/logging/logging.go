// Package logging builds the process logger and attaches trace context to
// log entries.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variables read by the registry
const EnvPrefix = "COORD_REGISTRY"

// LevelFromEnv reads COORD_REGISTRY_LOG_LEVEL, falling back to LOG_LEVEL.
// The second result is false when a value was set but not recognized.
func LevelFromEnv() (zapcore.Level, bool) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	raw := v.GetString("log_level")
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	return ParseLevel(raw)
}

// ParseLevel maps a level name to a zap level. Empty and unknown names map
// to info; the second result is false only for unknown names.
func ParseLevel(raw string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// New returns a JSON logger writing to stderr at the given level. Stdout
// stays free for command output.
func New(level zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, zap.AddCaller())
}

// WithTrace adds the trace and span ids of the span in ctx, if any
func WithTrace(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
