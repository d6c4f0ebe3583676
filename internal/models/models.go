package models

import (
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/lehigh-university-libraries/passport/internal/sheet"
)

// SessionStatus is the JSON view of a passport photo session
type SessionStatus struct {
	ID            string       `json:"id"`
	State         string       `json:"state"`
	View          string       `json:"view"`
	IsProcessing  bool         `json:"is_processing"`
	SpacingMM     int          `json:"spacing_mm"`
	Error         string       `json:"error,omitempty"`
	Notice        string       `json:"notice,omitempty"`
	OriginalImage *ImageItem   `json:"original_image,omitempty"`
	EditedImage   *ImageItem   `json:"edited_image,omitempty"`
	Sheet         *SheetLayout `json:"sheet,omitempty"`
}

// ImageItem represents one stored image
type ImageItem struct {
	ImageURL    string `json:"image_url"`
	MIMEType    string `json:"mime_type"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	Size        int    `json:"size"`
}

// SheetLayout summarises the A4 arrangement at the current spacing
type SheetLayout struct {
	RowWidthMM float64 `json:"row_width_mm"`
	Fits       bool    `json:"fits"`
	OverflowMM float64 `json:"overflow_mm"`
	Tiles      int     `json:"tiles"`
}

// NewSessionStatus builds the status for snap. notice is the pending
// one-shot message, if any.
func NewSessionStatus(snap session.Snapshot, notice string) SessionStatus {
	status := SessionStatus{
		ID:            snap.ID,
		State:         string(snap.State),
		View:          string(snap.View),
		IsProcessing:  snap.IsProcessing,
		SpacingMM:     snap.SpacingMM,
		Error:         snap.Error,
		Notice:        notice,
		OriginalImage: imageItem(snap.ID, "original", snap.OriginalImage),
		EditedImage:   imageItem(snap.ID, "edited", snap.EditedImage),
	}

	if layout, err := sheet.Arrange(snap.SpacingMM); err == nil {
		status.Sheet = &SheetLayout{
			RowWidthMM: layout.RowWidthMM,
			Fits:       layout.Fits(),
			OverflowMM: layout.OverflowMM(),
			Tiles:      len(layout.Tiles),
		}
	}
	return status
}

func imageItem(id, kind string, img *session.Image) *ImageItem {
	if img == nil {
		return nil
	}
	return &ImageItem{
		ImageURL:    "/image/" + id + "/" + kind,
		MIMEType:    img.MIMEType,
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
		Size:        len(img.Data),
	}
}
