package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(instrumentationName)
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(instrumentationName)
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return GetGlobalTracer().Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TracePipelineFunction starts a new span for an OCR pipeline stage.
func TracePipelineFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "pipeline", functionName, attributes...)
}

// TraceOCRFunction starts a new span for a text recognizer function.
func TraceOCRFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "ocr", functionName, attributes...)
}

// TraceTranslationFunction starts a new span for a translation service function.
func TraceTranslationFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "translation", functionName, attributes...)
}

// AttributeTargetLanguage returns a tracing attribute for the requested target language.
func AttributeTargetLanguage(lang string) attribute.KeyValue {
	return attribute.String("translation.target_language", lang)
}

// AttributeTextLength returns a tracing attribute for a text length in bytes.
func AttributeTextLength(n int) attribute.KeyValue {
	return attribute.Int("text.length", n)
}

// AttributeImageFormat returns a tracing attribute for a decoded image format.
func AttributeImageFormat(format string) attribute.KeyValue {
	return attribute.String("image.format", format)
}

// AttributeImageSize returns a tracing attribute for the upload size in bytes.
func AttributeImageSize(n int) attribute.KeyValue {
	return attribute.Int("image.size_bytes", n)
}
