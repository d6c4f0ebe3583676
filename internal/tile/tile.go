// Package tile paints a single passport photo into its frame.
package tile

import (
	"image"
	"image/color"
	"math"

	"github.com/lehigh-university-libraries/passport/internal/geometry"
	"golang.org/x/image/draw"
)

// Render paints src into r on dst using frame. The placeholder fill is
// painted first so it shows wherever src is missing. src is scaled to cover
// the whole frame and centre-cropped; it is never letterboxed.
func Render(dst draw.Image, r image.Rectangle, src image.Image, frame geometry.Frame, pxPerMM float64) {
	if r.Empty() {
		return
	}

	draw.Draw(dst, r, image.NewUniform(frame.Placeholder), image.Point{}, draw.Src)

	if src != nil && !src.Bounds().Empty() {
		draw.CatmullRom.Scale(dst, r, src, CoverCrop(src.Bounds(), r.Dx(), r.Dy()), draw.Over, nil)
	}

	if frame.BorderMM > 0 {
		border(dst, r, frame.BorderColor, borderPixels(frame.BorderMM, pxPerMM))
	}
}

// CoverCrop returns the centred region of src that, scaled uniformly to
// w x h, covers it exactly.
func CoverCrop(src image.Rectangle, w, h int) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return src
	}

	scale := math.Max(float64(w)/sw, float64(h)/sh)
	cw := int(math.Round(float64(w) / scale))
	ch := int(math.Round(float64(h) / scale))
	cw = min(max(cw, 1), src.Dx())
	ch = min(max(ch, 1), src.Dy())

	x0 := src.Min.X + (src.Dx()-cw)/2
	y0 := src.Min.Y + (src.Dy()-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

func borderPixels(mm, pxPerMM float64) int {
	return max(1, geometry.ToPixels(mm, pxPerMM))
}

func border(dst draw.Image, r image.Rectangle, c color.Color, width int) {
	u := image.NewUniform(c)
	width = min(width, r.Dx()/2, r.Dy()/2)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, u, image.Point{}, draw.Src)
	}
}
