// Package rasterizer turns the printable sheet region into a bitmap.
package rasterizer

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/lehigh-university-libraries/passport/internal/sheet"
)

// ColorSpaceSRGB is the only colour space the rasterizers produce.
const ColorSpaceSRGB = "srgb"

// Request describes one rasterization of the printable region.
type Request struct {
	// URL and Selector locate the printable region for browser backends.
	URL      string
	Selector string

	// Layout and Photo describe the same region for the native backend.
	Layout sheet.Layout
	Photo  image.Image

	Scale      float64
	ColorSpace string
	Background color.RGBA
}

// Rasterizer renders the region described by a Request.
type Rasterizer interface {
	Rasterize(ctx context.Context, req Request) (image.Image, error)
}

func validate(req Request) error {
	if req.Scale <= 0 {
		return fmt.Errorf("invalid scale %v", req.Scale)
	}
	if req.ColorSpace != "" && req.ColorSpace != ColorSpaceSRGB {
		return fmt.Errorf("unsupported color space %q", req.ColorSpace)
	}
	return nil
}
