package usecase

import "errors"

// Client input errors. Wrapped messages are safe to return to callers.
var (
	ErrMissingInput    = errors.New("no file provided or invalid file upload")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrTooLarge        = errors.New("file size too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidMime     = errors.New("invalid mime type")
	ErrCorruptImage    = errors.New("invalid image file, it may be corrupted or not an image")
	ErrInvalidPath     = errors.New("invalid path segment")
)

// Server side errors. Details are logged, never returned.
var (
	ErrConversionFailed = errors.New("failed to convert image")
	ErrWriteFailed      = errors.New("failed to store image")
	ErrDeleteFailed     = errors.New("failed to delete image")
)

var ErrNotFound = errors.New("image not found")

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrMissingInput,
		ErrUnsupportedType,
		ErrTooLarge,
		ErrEmptyFile,
		ErrInvalidMime,
		ErrCorruptImage,
		ErrInvalidPath,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
