// Package sheet arranges passport photos on an A4 sheet.
package sheet

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/passport/internal/geometry"
)

// ErrSpacingOutOfRange is returned for spacing outside [0,10] mm.
var ErrSpacingOutOfRange = errors.New("spacing out of range")

// Layout is the computed placement of every tile on the sheet.
type Layout struct {
	SpacingMM  int
	Sheet      geometry.Rect
	Tiles      []geometry.Rect
	RowWidthMM float64
}

// ValidateSpacing checks that s is an accepted spacing value.
func ValidateSpacing(s int) error {
	if s < geometry.MinSpacingMM || s > geometry.MaxSpacingMM {
		return fmt.Errorf("%w: %d mm (allowed %d-%d)", ErrSpacingOutOfRange, s, geometry.MinSpacingMM, geometry.MaxSpacingMM)
	}
	return nil
}

// RowWidth returns the width of a row of PhotosPerRow photos with s mm
// between neighbours.
func RowWidth(s int) float64 {
	gaps := geometry.PhotosPerRow - 1
	return geometry.PhotosPerRow*geometry.PhotoWidthMM + float64(gaps*s)
}

// Arrange lays out a single centred row of photos with s mm gaps. Tiles keep
// their full size; when the row is wider than the sheet it overflows both
// edges equally.
func Arrange(s int) (Layout, error) {
	if err := ValidateSpacing(s); err != nil {
		return Layout{}, err
	}

	width := RowWidth(s)
	left := (geometry.SheetWidthMM - width) / 2

	tiles := make([]geometry.Rect, geometry.PhotosPerRow)
	for i := range tiles {
		tiles[i] = geometry.Rect{
			X:      left + float64(i)*(geometry.PhotoWidthMM+float64(s)),
			Y:      geometry.TopMarginMM,
			Width:  geometry.PhotoWidthMM,
			Height: geometry.PhotoHeightMM,
		}
	}

	return Layout{
		SpacingMM:  s,
		Sheet:      geometry.Rect{Width: geometry.SheetWidthMM, Height: geometry.SheetHeightMM},
		Tiles:      tiles,
		RowWidthMM: width,
	}, nil
}

// Fits reports whether the whole row lies within the sheet width.
func (l Layout) Fits() bool {
	return l.RowWidthMM <= l.Sheet.Width
}

// OverflowMM is how far the row extends past each side of the sheet.
func (l Layout) OverflowMM() float64 {
	if l.Fits() {
		return 0
	}
	return (l.RowWidthMM - l.Sheet.Width) / 2
}
