// Package serviceinterfaces holds the seams between the HTTP/CLI surfaces and the OCR pipeline.
package serviceinterfaces

import (
	"context"
)

// TranslateRequest carries recognized text to a translation backend.
// An empty or "auto" SourceLanguage leaves detection to the backend.
type TranslateRequest struct {
	Text           string
	TargetLanguage string
	SourceLanguage string
}

// TranslateResponse is what a backend produced for a TranslateRequest.
// SourceLanguage is the detected language when the backend reports one.
type TranslateResponse struct {
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	Provider       string
	Confidence     float64
}

// TranslationService turns OCR output into the requested language
type TranslationService interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)

	// ValidateLanguageCode rejects codes the backend would not accept as a target
	ValidateLanguageCode(langCode string) error

	GetSupportedLanguages() []string
}
