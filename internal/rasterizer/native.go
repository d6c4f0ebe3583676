package rasterizer

import (
	"context"
	"image"
	"image/draw"

	"github.com/lehigh-university-libraries/passport/internal/geometry"
	"github.com/lehigh-university-libraries/passport/internal/tile"
)

// Native paints the sheet layout directly without a browser.
type Native struct {
	Frame geometry.Frame
}

// NewNative returns a native rasterizer using the print tile frame.
func NewNative() *Native {
	return &Native{Frame: geometry.PrintFrame()}
}

// Rasterize renders req.Layout at req.Scale times the CSS reference
// resolution. Tiles that overflow the sheet are cut off at its edges, as
// the printable area does.
func (n *Native) Rasterize(ctx context.Context, req Request) (image.Image, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pxPerMM := geometry.CSSPixelsPerMM * req.Scale
	canvas := image.NewRGBA(req.Layout.Sheet.Pixels(pxPerMM))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(req.Background), image.Point{}, draw.Src)

	for _, r := range req.Layout.Tiles {
		dst := r.Pixels(pxPerMM)
		tile.Render(canvas, dst, req.Photo, n.Frame, pxPerMM)
	}

	return canvas, nil
}
