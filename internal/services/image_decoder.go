package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered image formats
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"
)

// DecodedImage is an alias for the shared decoded image type
type DecodedImage = serviceinterfaces.DecodedImage

var errEmptyImage = errors.New("image: empty input")

// DecodeImage parses raw upload bytes into a raster image. Any failure is an
// IMAGE_DECODE_FAILED error carrying the decoder's message.
//
// The header is read first and images whose width*height exceeds maxPixels are
// rejected before any pixel buffer is allocated. maxPixels <= 0 disables the check.
func DecodeImage(data []byte, maxPixels int64) (*DecodedImage, error) {
	if len(data) == 0 {
		return nil, contextutils.NewStageError(contextutils.ErrImageDecode, errEmptyImage)
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, contextutils.NewStageError(contextutils.ErrImageDecode, err)
	}
	if pixels := int64(header.Width) * int64(header.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, contextutils.NewStageError(contextutils.ErrImageDecode,
			fmt.Errorf("image size (%d pixels) exceeds limit of %d pixels", pixels, maxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, contextutils.NewStageError(contextutils.ErrImageDecode, err)
	}

	return &DecodedImage{Image: img, Format: format}, nil
}
