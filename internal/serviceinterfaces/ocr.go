package serviceinterfaces

import (
	"context"
	"image"
)

// DecodedImage is an uploaded image after format detection and decoding
type DecodedImage struct {
	Image  image.Image
	Format string
}

// OCRRequest carries one uploaded image through the pipeline
type OCRRequest struct {
	Image          []byte
	Filename       string
	TargetLanguage string
}

// OCRResult is the success payload returned to the caller.
// Translated is empty when no text was recognized.
type OCRResult struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// TextRecognizer extracts printed text from a decoded image
type TextRecognizer interface {
	// Recognize returns the text found in the image, verbatim
	Recognize(ctx context.Context, img *DecodedImage) (string, error)

	// Version reports the OCR engine version
	Version() string
}

// OCRPipeline runs decode, recognize and translate for a single upload
type OCRPipeline interface {
	Process(ctx context.Context, req OCRRequest) (*OCRResult, error)
}
