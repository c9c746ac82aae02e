package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"ocrtranslate/internal/api"
	"ocrtranslate/internal/observability"
	contextutils "ocrtranslate/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware turns a panic in any later handler into a 500 response
// with the usual {"error": ...} body, and logs the panic with its stack trace.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			var cause error
			if e, ok := rec.(error); ok {
				cause = e
			} else {
				cause = fmt.Errorf("%v", rec)
			}

			appErr := contextutils.NewAppErrorWithCause(
				contextutils.ErrorCodeInternalError,
				contextutils.SeverityFatal,
				"Internal server error",
				cause.Error(),
				cause,
			)

			logger.Error(c.Request.Context(), "Panic recovered", appErr, map[string]interface{}{
				"http.method": c.Request.Method,
				"http.path":   c.Request.URL.Path,
				"stacktrace":  string(debug.Stack()),
			})

			_ = c.Error(appErr)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{Error: appErr.PublicMessage()})
		}()

		c.Next()
	}
}
