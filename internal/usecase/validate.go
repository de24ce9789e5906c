package usecase

import (
	"fmt"
	"image"
	"io"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Policy is the fixed acceptance policy for uploads.
type Policy struct {
	AllowedExtensions []string
	MaxBytes          int64
	// MaxPixels bounds the decoded raster so a small, highly compressed
	// file cannot expand into an unbounded pixel buffer.
	MaxPixels int
}

var DefaultPolicy = Policy{
	AllowedExtensions: []string{".png", ".jpg", ".jpeg", ".jfif", ".webp"},
	MaxBytes:          5 << 20,
	MaxPixels:         178_956_970,
}

var acceptedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/pjpeg",
	"image/webp",
}

// Upload is a raw upload as received from the caller.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.ReadSeeker
}

// Validate accepts or rejects an upload before any storage work happens.
// Body is rewound to the start whether or not validation passes.
func (p Policy) Validate(up Upload) (err error) {
	if up.Body == nil {
		return ErrMissingInput
	}
	defer func() {
		if _, serr := up.Body.Seek(0, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrMissingInput, serr)
		}
	}()
	if up.Filename == "" {
		return ErrMissingInput
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !slices.Contains(p.AllowedExtensions, ext) {
		return fmt.Errorf("%w, allowed types: %s", ErrUnsupportedType, strings.Join(p.AllowedExtensions, ", "))
	}

	size, err := up.Body.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingInput, err)
	}

	switch {
	case size == 0:
		return ErrEmptyFile
	case size > p.MaxBytes:
		return fmt.Errorf("%w, maximum size: %d bytes", ErrTooLarge, p.MaxBytes)
	}

	// An extension without a registered mime type is tolerated; a known
	// but unaccepted one is not.
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		mt, _, perr := mime.ParseMediaType(guessed)
		if perr != nil || !slices.Contains(acceptedMimeTypes, mt) {
			return fmt.Errorf("%w: %s, only PNG, JPEG and WebP images are allowed", ErrInvalidMime, guessed)
		}
	}

	return p.checkDecodes(up.Body)
}

func (p Policy) checkDecodes(r io.ReadSeeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	sniffed, err := mimetype.DetectReader(r)
	if err != nil || !strings.HasPrefix(sniffed.String(), "image/") {
		return ErrCorruptImage
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return ErrCorruptImage
	}
	if p.MaxPixels > 0 && cfg.Width*cfg.Height > p.MaxPixels {
		return fmt.Errorf("%w, image dimensions %dx%d exceed the limit", ErrTooLarge, cfg.Width, cfg.Height)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	if _, _, err := image.Decode(r); err != nil {
		return ErrCorruptImage
	}
	return nil
}
