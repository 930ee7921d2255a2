package images

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ImageFormat represents supported image formats
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatWebP ImageFormat = "webp"
	FormatPNG  ImageFormat = "png"
	FormatBMP  ImageFormat = "bmp"
)

// FormatFromPath returns the format selected by the file extension.
func FormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	case ".bmp":
		return FormatBMP, nil
	}
	return "", errors.Errorf("unsupported image extension %q", filepath.Ext(path))
}
