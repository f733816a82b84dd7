// Package dimension rejects images whose decoded size is below a threshold.
package dimension

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Enabled reports whether a threshold activates the filter. Either side being
// non-positive disables it.
func Enabled(minWidth, minHeight int) bool {
	return minWidth > 0 && minHeight > 0
}

// Measure fully decodes data and returns its width and height.
func Measure(data []byte) (width, height int, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// PassesMinimum reports whether data is at least minWidth x minHeight.
// A decode failure is logged to logger and passes: it says nothing about size.
func PassesMinimum(data []byte, minWidth, minHeight int, logger *slog.Logger) bool {
	if !Enabled(minWidth, minHeight) {
		return true
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	width, height, err := Measure(data)
	if err != nil {
		logger.Warn("unable to determine image size", "error", err)
		return true
	}

	if width < minWidth || height < minHeight {
		logger.Debug("image below minimum dimensions",
			"width", width,
			"height", height,
			"min_width", minWidth,
			"min_height", minHeight,
		)
		return false
	}
	return true
}
