package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"ocrtranslate/internal/api"
	"ocrtranslate/internal/observability"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxLoggedBody = 200

// ResponseValidationMiddleware buffers JSON responses of documented endpoints and checks
// them against the OpenAPI schema for their status code. A response that does not match
// is replaced by a 500 error payload.
func ResponseValidationMiddleware(schemaLoader *SchemaLoader, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !schemaLoader.IsEndpointDocumented(c.Request.URL.Path, c.Request.Method) {
			c.Next()
			return
		}

		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "response_validation",
			attribute.String("http.path", c.Request.URL.Path),
			attribute.String("http.method", c.Request.Method),
		)
		defer span.End()

		originalWriter := c.Writer
		capture := &responseCaptureWriter{ResponseWriter: originalWriter, body: &bytes.Buffer{}}
		c.Writer = capture
		defer func() { c.Writer = originalWriter }()

		c.Next()

		c.Writer = originalWriter
		statusCode := capture.Status()

		if !strings.HasPrefix(capture.Header().Get("Content-Type"), "application/json") {
			span.SetAttributes(attribute.String("validation.result", "not_json"))
			capture.flush(statusCode)
			return
		}

		schemaName := schemaLoader.DetermineSchemaFromPath(c.Request.URL.Path, c.Request.Method, statusCode)
		if schemaName == "" {
			span.SetAttributes(attribute.String("validation.result", "no_schema_found"))
			logger.Warn(ctx, "No schema found for response", map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"status": statusCode,
			})
			capture.flush(statusCode)
			return
		}
		span.SetAttributes(attribute.String("validation.schema", schemaName))

		var responseData interface{}
		err := json.Unmarshal(capture.body.Bytes(), &responseData)
		if err == nil {
			err = schemaLoader.ValidateData(responseData, schemaName)
		}
		if err != nil {
			span.SetAttributes(attribute.String("validation.result", "validation_failed"))

			body := capture.body.String()
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody]
			}
			logger.Error(ctx, "Response validation failed", err, map[string]interface{}{
				"method":        c.Request.Method,
				"path":          c.Request.URL.Path,
				"schema_name":   schemaName,
				"response_data": body,
			})

			c.Writer.Header().Del("Content-Length")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Response validation failed"})
			return
		}

		span.SetAttributes(attribute.String("validation.result", "validation_passed"))
		capture.flush(statusCode)
	}
}

// responseCaptureWriter holds the status and body until validation decides what to send
type responseCaptureWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *responseCaptureWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}

func (w *responseCaptureWriter) WriteHeaderNow() {}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *responseCaptureWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *responseCaptureWriter) Status() int {
	if w.status != 0 {
		return w.status
	}
	return http.StatusOK
}

func (w *responseCaptureWriter) Size() int {
	if w.body.Len() == 0 && w.status == 0 {
		return -1
	}
	return w.body.Len()
}

func (w *responseCaptureWriter) Written() bool {
	return w.status != 0 || w.body.Len() > 0
}

// flush sends the buffered response to the real writer
func (w *responseCaptureWriter) flush(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	_, _ = w.ResponseWriter.Write(w.body.Bytes())
}
