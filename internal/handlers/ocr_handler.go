package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"ocrtranslate/internal/api"
	"ocrtranslate/internal/config"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"

	"github.com/gin-gonic/gin"
)

// OCRHandler serves the image upload endpoint
type OCRHandler struct {
	pipeline serviceinterfaces.OCRPipeline
	cfg      *config.Config
	logger   *observability.Logger
}

// NewOCRHandler creates a new OCRHandler instance
func NewOCRHandler(pipeline serviceinterfaces.OCRPipeline, cfg *config.Config, logger *observability.Logger) *OCRHandler {
	return &OCRHandler{
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger,
	}
}

// Recognize handles POST /ocr
func (h *OCRHandler) Recognize(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "recognize")
	var err error
	defer observability.FinishSpan(span, &err)

	if h.cfg.Server.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Server.MaxUploadBytes)
	}

	req, err := h.readUpload(c.Request)
	if err != nil {
		h.logger.Warn(ctx, "Rejected upload", map[string]interface{}{
			"error_code": string(contextutils.GetErrorCode(err)),
			"error":      err.Error(),
		})
		RespondOCRError(c, err)
		return
	}
	span.SetAttributes(
		observability.AttributeImageSize(len(req.Image)),
		observability.AttributeTargetLanguage(req.TargetLanguage),
	)

	result, err := h.pipeline.Process(ctx, req)
	if err != nil {
		RespondOCRError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.OCRResponse{
		Original:   result.Original,
		Translated: result.Translated,
	})
}

// readUpload streams the multipart body and pulls out the image and target language.
// Only parts carrying a filename parameter count as files; the first such "file" part
// decides the outcome, and a plain "file" field is ignored like any other value.
// A body that is not multipart at all has no file part.
func (h *OCRHandler) readUpload(r *http.Request) (serviceinterfaces.OCRRequest, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return serviceinterfaces.OCRRequest{}, contextutils.ErrMissingFile
		}
		return serviceinterfaces.OCRRequest{}, uploadError(err)
	}

	var (
		req      serviceinterfaces.OCRRequest
		seenFile bool
		lang     string
		seenLang bool
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return serviceinterfaces.OCRRequest{}, uploadError(err)
		}

		switch part.FormName() {
		case config.FormFieldFile:
			filename, isFile := partFilename(part)
			if isFile && !seenFile {
				seenFile = true
				req.Filename = filename
				if filename != "" {
					req.Image, err = io.ReadAll(part)
				}
			}
		case config.FormFieldLanguage:
			if !seenLang {
				seenLang = true
				var value []byte
				value, err = io.ReadAll(part)
				lang = string(value)
			}
		}
		_ = part.Close()
		if err != nil {
			return serviceinterfaces.OCRRequest{}, uploadError(err)
		}
	}

	switch {
	case !seenFile:
		return serviceinterfaces.OCRRequest{}, contextutils.ErrMissingFile
	case req.Filename == "":
		return serviceinterfaces.OCRRequest{}, contextutils.ErrEmptyFilename
	}

	req.TargetLanguage = h.targetLanguage(lang)
	return req, nil
}

// partFilename reports the part's filename and whether the filename parameter was sent at all
func partFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	if _, ok := params["filename"]; !ok {
		return "", false
	}
	return part.FileName(), true
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInternalError,
			contextutils.SeverityWarn,
			"Upload too large",
			fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			err,
		)
	}
	return contextutils.WrapError(err, "failed to read upload")
}

func (h *OCRHandler) targetLanguage(lang string) string {
	if lang != "" {
		return lang
	}
	if h.cfg.Server.DefaultLanguage != "" {
		return h.cfg.Server.DefaultLanguage
	}
	return config.DefaultTargetLanguage
}
