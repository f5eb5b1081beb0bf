package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

var errTooManyPixels = errors.New("image has too many pixels")

// checkPixels reads the image header and fails when width*height exceeds maxPixels.
// A limit of 0 disables the check.
func checkPixels(data []byte, maxPixels int64) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image config: %w", err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return errTooManyPixels
	}
	return nil
}

// calculateScaledDimensions fits width x height into maxWidth x maxHeight keeping the aspect ratio.
// A bound of 0 leaves that side unconstrained.
func calculateScaledDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if maxWidth <= 0 {
		maxWidth = width
	}
	if maxHeight <= 0 {
		maxHeight = height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	newWidth := max(int(float64(width)*ratio), 1)
	newHeight := max(int(float64(height)*ratio), 1)
	return newWidth, newHeight
}

// downscale shrinks images larger than the bounds. It returns the input unchanged
// when no scaling is needed. GIFs are never touched to keep animations intact.
func downscale(data []byte, ext string, maxWidth, maxHeight int) ([]byte, bool, error) {
	if (maxWidth <= 0 && maxHeight <= 0) || ext == ".gif" {
		return data, false, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image config: %w", err)
	}

	if w, h := calculateScaledDimensions(cfg.Width, cfg.Height, maxWidth, maxHeight); w == cfg.Width && h == cfg.Height {
		return data, false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	// orientation may have swapped the sides
	bounds := img.Bounds()
	width, height := calculateScaledDimensions(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, false, err
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, false, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), true, nil
}
