package observability

import (
	contextutils "ocrtranslate/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends span, first annotating it with the error errPtr points at.
//
//	defer observability.FinishSpan(span, &err)
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		annotateError(span, *errPtr)
	}
	span.End()
}

// annotateError tags a span with the AppError code, severity and retryability.
// Stack traces are only kept for error and fatal severities; rejected uploads don't need one.
func annotateError(span trace.Span, err error) {
	severity := contextutils.GetErrorSeverity(err)
	withStack := severity == contextutils.SeverityError || severity == contextutils.SeverityFatal

	span.RecordError(err, trace.WithStackTrace(withStack))
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String("error.code", string(contextutils.GetErrorCode(err))),
		attribute.String("error.severity", string(severity)),
		attribute.Bool("error.retryable", contextutils.IsRetryable(err)),
	)
}
