// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package imageprobe reads image dimensions without decoding pixel data.
package imageprobe

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ManuGH/mediacapture/internal/media"
)

// Prober implements media.ImageProber with image.DecodeConfig.
type Prober struct{}

var _ media.ImageProber = Prober{}

// Bounds returns the width and height recorded in the image header.
func (Prober) Bounds(path string) (int, int, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-supplied capture path
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s image %s has no dimensions", format, path)
	}
	return cfg.Width, cfg.Height, nil
}
