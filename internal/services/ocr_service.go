package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/observability"
	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"

	"github.com/otiai10/gosseract/v2"
	"go.opentelemetry.io/otel/attribute"
)

// ocrEngine is the subset of the gosseract client used for one recognition
type ocrEngine interface {
	SetTessdataPrefix(prefix string) error
	SetLanguage(langs ...string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

func newTesseractEngine() ocrEngine {
	client := gosseract.NewClient()
	client.Trim = false
	return client
}

// TesseractRecognizer runs Tesseract through gosseract. A fresh client is created per call,
// so a recognizer is safe for concurrent use.
type TesseractRecognizer struct {
	cfg       config.OCRConfig
	logger    *observability.Logger
	newEngine func() ocrEngine
	version   func() string
}

// NewTesseractRecognizer creates a recognizer bound to the given engine settings
func NewTesseractRecognizer(cfg config.OCRConfig, logger *observability.Logger) *TesseractRecognizer {
	return &TesseractRecognizer{
		cfg:       cfg,
		logger:    logger,
		newEngine: newTesseractEngine,
		version:   gosseract.Version,
	}
}

var _ serviceinterfaces.TextRecognizer = (*TesseractRecognizer)(nil)

// Version reports the linked Tesseract version
func (r *TesseractRecognizer) Version() string {
	return r.version()
}

// Recognize extracts text from the image. The raster is handed to Tesseract as PNG.
func (r *TesseractRecognizer) Recognize(ctx context.Context, img *DecodedImage) (text string, err error) {
	ctx, span := observability.TraceOCRFunction(ctx, "recognize",
		attribute.Int("ocr.page_seg_mode", r.cfg.PageSegMode),
		attribute.StringSlice("ocr.languages", r.cfg.Languages),
	)
	defer observability.FinishSpan(span, &err)

	if img == nil || img.Image == nil {
		return "", contextutils.NewStageError(contextutils.ErrRecognition, errors.New("no image to recognize"))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Image); err != nil {
		return "", contextutils.NewStageError(contextutils.ErrRecognition, err)
	}

	if r.cfg.Timeout <= 0 {
		return r.run(buf.Bytes())
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	// gosseract cannot be interrupted; on timeout the engine keeps running in this
	// goroutine until Tesseract returns, and its result is dropped.
	done := make(chan outcome, 1)
	go func() {
		text, err := r.run(buf.Bytes())
		done <- outcome{text: text, err: err}
	}()

	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		r.logger.Warn(ctx, "Text recognition abandoned", map[string]interface{}{
			"timeout": r.cfg.Timeout.String(),
		})
		return "", contextutils.NewStageError(contextutils.ErrRecognition,
			fmt.Errorf("tesseract did not finish: %w", ctx.Err()))
	}
}

func (r *TesseractRecognizer) run(data []byte) (string, error) {
	engine := r.newEngine()
	defer func() { _ = engine.Close() }()

	if r.cfg.TessdataPrefix != "" {
		if err := engine.SetTessdataPrefix(r.cfg.TessdataPrefix); err != nil {
			return "", contextutils.NewStageError(contextutils.ErrRecognition, err)
		}
	}
	if len(r.cfg.Languages) > 0 {
		if err := engine.SetLanguage(r.cfg.Languages...); err != nil {
			return "", contextutils.NewStageError(contextutils.ErrRecognition, err)
		}
	}
	if err := engine.SetPageSegMode(gosseract.PageSegMode(r.cfg.PageSegMode)); err != nil {
		return "", contextutils.NewStageError(contextutils.ErrRecognition, err)
	}
	if err := engine.SetImageFromBytes(data); err != nil {
		return "", contextutils.NewStageError(contextutils.ErrRecognition, err)
	}

	text, err := engine.Text()
	if err != nil {
		return "", contextutils.NewStageError(contextutils.ErrRecognition, err)
	}
	return text, nil
}
