package services

import (
	"context"
	"strings"
	"time"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// OCRPipelineService runs decode, recognize and translate for one upload.
// The first failing stage ends the request; no partial result is returned.
type OCRPipelineService struct {
	recognizer serviceinterfaces.TextRecognizer
	translator serviceinterfaces.TranslationService
	metrics    *observability.PipelineMetrics
	logger     *observability.Logger
	maxPixels  int64
}

var _ serviceinterfaces.OCRPipeline = (*OCRPipelineService)(nil)

// PipelineOption customizes an OCRPipelineService
type PipelineOption func(*OCRPipelineService)

// WithMaxImagePixels sets the width*height cap applied before decoding; 0 disables it
func WithMaxImagePixels(n int64) PipelineOption {
	return func(s *OCRPipelineService) { s.maxPixels = n }
}

// NewOCRPipelineService creates a pipeline over the given recognizer and translator.
// metrics may be nil. The pixel cap defaults to config.DefaultMaxImagePixels.
func NewOCRPipelineService(recognizer serviceinterfaces.TextRecognizer, translator serviceinterfaces.TranslationService, metrics *observability.PipelineMetrics, logger *observability.Logger, opts ...PipelineOption) *OCRPipelineService {
	s := &OCRPipelineService{
		recognizer: recognizer,
		translator: translator,
		metrics:    metrics,
		logger:     logger,
		maxPixels:  config.DefaultMaxImagePixels,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process decodes the image, extracts its text and translates it into the target
// language when the text is not blank.
func (s *OCRPipelineService) Process(ctx context.Context, req serviceinterfaces.OCRRequest) (result *serviceinterfaces.OCRResult, err error) {
	ctx, span := observability.TracePipelineFunction(ctx, "process",
		observability.AttributeTargetLanguage(req.TargetLanguage),
		observability.AttributeImageSize(len(req.Image)),
		attribute.String("upload.filename", req.Filename),
	)
	defer observability.FinishSpan(span, &err)
	defer func() { s.metrics.RecordRequest(ctx, err) }()

	start := time.Now()
	img, err := DecodeImage(req.Image, s.maxPixels)
	s.metrics.RecordStage(ctx, observability.StageDecode, time.Since(start), err)
	if err != nil {
		s.logger.Warn(ctx, "Failed to decode uploaded image", map[string]interface{}{
			"filename":   req.Filename,
			"size_bytes": len(req.Image),
			"error":      err.Error(),
		})
		return nil, err
	}
	span.SetAttributes(observability.AttributeImageFormat(img.Format))

	start = time.Now()
	original, err := s.recognizer.Recognize(ctx, img)
	s.metrics.RecordStage(ctx, observability.StageRecognize, time.Since(start), err)
	if err != nil {
		err = contextutils.NewStageError(contextutils.ErrRecognition, err)
		s.logger.Error(ctx, "Text recognition failed", err, map[string]interface{}{
			"filename": req.Filename,
			"format":   img.Format,
		})
		return nil, err
	}
	span.SetAttributes(observability.AttributeTextLength(len(original)))

	result = &serviceinterfaces.OCRResult{Original: original}
	if strings.TrimSpace(original) == "" {
		s.logger.Debug(ctx, "No text recognized, skipping translation", map[string]interface{}{
			"filename": req.Filename,
		})
		return result, nil
	}

	start = time.Now()
	translation, err := s.translator.Translate(ctx, serviceinterfaces.TranslateRequest{
		Text:           original,
		SourceLanguage: config.SourceLanguageAuto,
		TargetLanguage: req.TargetLanguage,
	})
	s.metrics.RecordStage(ctx, observability.StageTranslate, time.Since(start), err)
	if err != nil {
		err = contextutils.NewStageError(contextutils.ErrTranslation, err)
		s.logger.Error(ctx, "Translation failed", err, map[string]interface{}{
			"filename":        req.Filename,
			"target_language": req.TargetLanguage,
			"text_length":     len(original),
		})
		return nil, err
	}

	result.Translated = translation.TranslatedText
	span.SetAttributes(attribute.String("translation.provider", translation.Provider))

	s.logger.Info(ctx, "OCR request processed", map[string]interface{}{
		"filename":             req.Filename,
		"format":               img.Format,
		"target_language":      req.TargetLanguage,
		"detected_language":    translation.SourceLanguage,
		"translation_provider": translation.Provider,
		"text_length":          len(original),
	})

	return result, nil
}
