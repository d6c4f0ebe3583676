// Package export implements the one-shot export actions: download the
// edited photo and download the rasterized A4 sheet.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/passport/internal/geometry"
	"github.com/lehigh-university-libraries/passport/internal/rasterizer"
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/lehigh-university-libraries/passport/internal/sheet"
)

const (
	// PrintableSelector identifies the sheet element shared by print and download.
	PrintableSelector = "#printable-area"
	// SheetScale is the rasterization scale relative to CSS pixels.
	SheetScale = 3

	// SheetFailureNotice is shown when the sheet cannot be rasterized.
	SheetFailureNotice = "Failed to download layout. Try printing to PDF instead."
)

var (
	ErrNothingToExport = errors.New("no edited photo to export")
	ErrSheetExport     = errors.New("sheet export failed")
)

// File is a named download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Photo serializes the edited photo as a timestamped PNG.
func Photo(snap session.Snapshot, now time.Time) (*File, error) {
	if snap.EditedImage == nil {
		return nil, ErrNothingToExport
	}

	data, err := snap.EditedImage.PNG()
	if err != nil {
		return nil, err
	}

	return &File{
		Name:        fmt.Sprintf("passport-4k-photo-%d.png", now.UnixMilli()),
		ContentType: "image/png",
		Data:        data,
	}, nil
}

// Exporter rasterizes the printable sheet.
type Exporter struct {
	Rasterizer rasterizer.Rasterizer
}

// New returns an Exporter backed by r.
func New(r rasterizer.Rasterizer) *Exporter {
	return &Exporter{Rasterizer: r}
}

// Sheet rasterizes the printable region at 3x on opaque white and returns it
// as a timestamped PNG. printableURL must render only the sheet for snap.
// Failures wrap ErrSheetExport; the session is never touched.
func (e *Exporter) Sheet(ctx context.Context, snap session.Snapshot, printableURL string, now time.Time) (*File, error) {
	if snap.EditedImage == nil {
		return nil, ErrNothingToExport
	}

	layout, err := sheet.Arrange(snap.SpacingMM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSheetExport, err)
	}

	photo, err := snap.EditedImage.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSheetExport, err)
	}

	start := time.Now()
	img, err := e.Rasterizer.Rasterize(ctx, rasterizer.Request{
		URL:        printableURL,
		Selector:   PrintableSelector,
		Layout:     layout,
		Photo:      photo,
		Scale:      SheetScale,
		ColorSpace: rasterizer.ColorSpaceSRGB,
		Background: geometry.SheetWhite,
	})
	if err != nil {
		slog.Error("Sheet rasterization failed", "session_id", snap.ID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSheetExport, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %w", ErrSheetExport, err)
	}

	slog.Info("Sheet rasterized", "session_id", snap.ID, "spacing_mm", snap.SpacingMM,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy(), "duration", time.Since(start))

	return &File{
		Name:        fmt.Sprintf("passport-a4-layout-%d.png", now.UnixMilli()),
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}
