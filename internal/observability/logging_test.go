package observability

import (
	"context"
	"errors"
	"testing"

	"ocrtranslate/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestLogWithContextAddsTraceInfo(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	tracer := tp.Tracer("test-tracer")

	logger, observedLogs := newObservedLogger(zap.InfoLevel)

	ctx, span := tracer.Start(context.Background(), "test-span")
	defer span.End()

	logger.Info(ctx, "test message", nil)

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0].Message)

	fields := entries[0].ContextMap()
	spanContext := span.SpanContext()
	assert.Equal(t, spanContext.TraceID().String(), fields["trace_id"])
	assert.Equal(t, spanContext.SpanID().String(), fields["span_id"])
}

func TestLogWithContextNoSpan(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.InfoLevel)

	logger.Info(context.Background(), "test message", map[string]interface{}{"filename": "scan.png"})

	entries := observedLogs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
	assert.Equal(t, "scan.png", fields["filename"])
}

func TestLoggerError_IncludesErrorAndMergedFields(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.DebugLevel)

	logger.Error(context.Background(), "recognition failed", errors.New("tesseract: no such file"),
		map[string]interface{}{"stage": "recognize"},
		map[string]interface{}{"lang": "fr"},
	)

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "tesseract: no such file", fields["error"])
	assert.Equal(t, "recognize", fields["stage"])
	assert.Equal(t, "fr", fields["lang"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	logger, observedLogs := newObservedLogger(zap.WarnLevel)

	logger.Debug(context.Background(), "debug")
	logger.Info(context.Background(), "info")
	logger.Warn(context.Background(), "warn")

	entries := observedLogs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zap.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zap.InfoLevel, ParseLevel(""))
	assert.Equal(t, zap.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger_Disabled(t *testing.T) {
	logger := NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	require.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))

	assert.NotNil(t, NewLogger(nil))
}

func TestNewLogger_StdoutOnly(t *testing.T) {
	logger := NewLoggerWithLevel(&config.OpenTelemetryConfig{EnableLogging: true}, zap.DebugLevel)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
