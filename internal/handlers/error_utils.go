package handlers

import (
	"net/http"

	"ocrtranslate/internal/api"
	contextutils "ocrtranslate/internal/utils"

	"github.com/gin-gonic/gin"
)

// RespondOCRError writes the single-field error payload for a failed request.
// The error is attached to the gin context so tracing and request logs see its code.
func RespondOCRError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *contextutils.AppError
	if !contextutils.AsError(err, &appErr) {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(mapErrorCodeToHTTPStatus(appErr.Code), api.ErrorResponse{Error: appErr.PublicMessage()})
}

// mapErrorCodeToHTTPStatus maps AppError codes to HTTP status codes.
// Only upload problems are the caller's fault; every processing failure is a 500.
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeMissingFile, contextutils.ErrorCodeEmptyFilename:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
