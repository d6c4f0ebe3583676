// Package geometry holds the fixed physical dimensions of a passport photo
// and the A4 sheet it is printed on, plus the frame abstraction shared by
// the on-screen preview tile and the print-sheet tiles.
package geometry

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Physical dimensions, in millimetres.
const (
	PhotoWidthMM  = 35.0
	PhotoHeightMM = 45.0

	SheetWidthMM  = 210.0
	SheetHeightMM = 297.0

	TopMarginMM  = 15.0
	PhotosPerRow = 6

	MinSpacingMM = 0
	MaxSpacingMM = 10
)

// CSSPixelsPerMM is the browser reference resolution (96 px per inch).
const CSSPixelsPerMM = 96.0 / 25.4

// Colours used by the photo frame and the sheet.
var (
	PlaceholderBlue = color.RGBA{0x25, 0x63, 0xeb, 0xff} // #2563eb
	FrameGray       = color.RGBA{0xf3, 0xf4, 0xf6, 0xff} // #f3f4f6
	PrintBorderGray = color.RGBA{0xf0, 0xf0, 0xf0, 0xff} // #f0f0f0
	SheetWhite      = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Rect is an axis aligned rectangle in millimetres. X and Y are measured
// from the top-left corner of the sheet and X may be negative when a row
// overflows the page.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the Y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Pixels converts the rectangle to a pixel rectangle at the given density.
func (r Rect) Pixels(pxPerMM float64) image.Rectangle {
	return image.Rect(
		ToPixels(r.X, pxPerMM),
		ToPixels(r.Y, pxPerMM),
		ToPixels(r.Right(), pxPerMM),
		ToPixels(r.Bottom(), pxPerMM),
	)
}

// ToPixels rounds a millimetre length to whole pixels.
func ToPixels(mm, pxPerMM float64) int {
	return int(math.Round(mm * pxPerMM))
}

// Frame describes how a single photo is framed. The zero value is not
// useful; start from DefaultFrame or PrintFrame.
type Frame struct {
	WidthMM     float64
	HeightMM    float64
	MinWidthMM  float64
	MinHeightMM float64

	// BorderMM is the border width. Zero draws no border.
	BorderMM    float64
	BorderColor color.RGBA

	// Placeholder is painted beneath the image and stays visible when the
	// image is missing or fails to load.
	Placeholder color.RGBA

	// Shadow only affects the HTML rendering.
	Shadow bool
}

// DefaultFrame is the 35x45mm frame used for the on-screen result tile.
func DefaultFrame() Frame {
	return Frame{
		WidthMM:     PhotoWidthMM,
		HeightMM:    PhotoHeightMM,
		MinWidthMM:  31,
		MinHeightMM: 40,
		BorderMM:    1 / CSSPixelsPerMM,
		BorderColor: FrameGray,
		Placeholder: PlaceholderBlue,
		Shadow:      true,
	}
}

// PrintFrame is the frame used for the tiles on the A4 sheet: exact size,
// hairline border, no shadow.
func PrintFrame() Frame {
	return DefaultFrame().With(FrameOverride{
		MinWidthMM:  ptr(PhotoWidthMM),
		MinHeightMM: ptr(PhotoHeightMM),
		BorderMM:    ptr(0.1),
		BorderColor: &PrintBorderGray,
		Shadow:      ptr(false),
	})
}

// FrameOverride replaces selected Frame fields. Nil fields keep the base value.
type FrameOverride struct {
	WidthMM     *float64
	HeightMM    *float64
	MinWidthMM  *float64
	MinHeightMM *float64
	BorderMM    *float64
	BorderColor *color.RGBA
	Placeholder *color.RGBA
	Shadow      *bool
}

// With returns a copy of f with the override applied.
func (f Frame) With(o FrameOverride) Frame {
	if o.WidthMM != nil {
		f.WidthMM = *o.WidthMM
	}
	if o.HeightMM != nil {
		f.HeightMM = *o.HeightMM
	}
	if o.MinWidthMM != nil {
		f.MinWidthMM = *o.MinWidthMM
	}
	if o.MinHeightMM != nil {
		f.MinHeightMM = *o.MinHeightMM
	}
	if o.BorderMM != nil {
		f.BorderMM = *o.BorderMM
	}
	if o.BorderColor != nil {
		f.BorderColor = *o.BorderColor
	}
	if o.Placeholder != nil {
		f.Placeholder = *o.Placeholder
	}
	if o.Shadow != nil {
		f.Shadow = *o.Shadow
	}
	return f
}

// CSS renders the frame as an inline style declaration.
func (f Frame) CSS() string {
	s := fmt.Sprintf("width:%smm;height:%smm;min-width:%smm;min-height:%smm;flex-shrink:0;background-color:%s;",
		mm(f.WidthMM), mm(f.HeightMM), mm(f.MinWidthMM), mm(f.MinHeightMM), Hex(f.Placeholder))
	if f.BorderMM > 0 {
		s += fmt.Sprintf("border:%smm solid %s;", mm(f.BorderMM), Hex(f.BorderColor))
	}
	if !f.Shadow {
		s += "box-shadow:none;"
	}
	return s
}

// Hex formats an opaque colour as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func mm(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func ptr[T any](v T) *T { return &v }
