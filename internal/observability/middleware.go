package observability

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "ocrtranslate/internal/utils"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling creates OpenTelemetry middleware that marks the request
// span as failed for 4xx/5xx responses and attaches the AppError code when one was recorded
// with c.Error. Register with router.Use(GinMiddlewareWithErrorHandling(name)...).
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), spanErrorMiddleware}
}

// spanErrorMiddleware runs inside the otelgin span so it can annotate it before it ends
func spanErrorMiddleware(c *gin.Context) {
	c.Next()

	statusCode := c.Writer.Status()
	if statusCode < 400 {
		return
	}
	span := trace.SpanFromContext(c.Request.Context())

	severity := determineErrorSeverity(statusCode, c.Errors)

	errorMsg := "client error"
	if statusCode >= 500 {
		errorMsg = "server error"
	}

	appErr := firstAppError(c.Errors)
	switch {
	case appErr != nil:
		errorMsg = appErr.Error()
	case len(c.Errors) > 0:
		errorMsg = c.Errors.Last().Error()
	}

	span.RecordError(errors.New(errorMsg), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, errorMsg)

	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.path", c.Request.URL.Path),
		attribute.String("error.handler", c.HandlerName()),
		attribute.String("error.severity", severity),
	)

	if c.Request.ContentLength > 0 {
		span.SetAttributes(attribute.Int64("error.request_size", c.Request.ContentLength))
	}

	if appErr != nil {
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
		)
	}

	if statusCode >= 500 {
		span.SetAttributes(attribute.Bool("error.server_error", true))
	}
}

func firstAppError(errs []*gin.Error) *contextutils.AppError {
	for _, err := range errs {
		var appErr *contextutils.AppError
		if contextutils.AsError(err.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

// determineErrorSeverity determines the severity level based on status code and error types
func determineErrorSeverity(statusCode int, errs []*gin.Error) string {
	if appErr := firstAppError(errs); appErr != nil {
		return string(appErr.Severity)
	}

	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
