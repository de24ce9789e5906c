package usecase

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Canonical storage format.
const (
	CanonicalExt       = ".jpg"
	CanonicalMediaType = "image/jpeg"
	DefaultQuality     = 85
)

// Normalizer re-encodes accepted images into the canonical format.
type Normalizer struct {
	Quality int
}

// Normalize decodes raw and re-encodes it as the canonical format.
func (n Normalizer) Normalize(raw []byte) ([]byte, error) {
	out, _, err := n.normalize(raw)
	return out, err
}

func (n Normalizer) normalize(raw []byte) ([]byte, image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode: %w", ErrConversionFailed, err)
	}

	flat := flatten(img)

	quality := n.Quality
	if quality == 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, nil, fmt.Errorf("%w: encode: %w", ErrConversionFailed, err)
	}
	return buf.Bytes(), flat, nil
}

// flatten collapses alpha and palette color models into opaque RGB.
// Transparency is dropped and the underlying color values are kept.
func flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return img
	}
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
