// Package session implements the lifecycle of one passport photo: upload,
// AI processing, ready, reset.
package session

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/passport/internal/sheet"
)

// EditFailureMessage is shown to the user whenever an edit attempt fails.
const EditFailureMessage = "Resolution enhancement failed. Please use a high-quality source image."

// UploadFailureMessage is the notice posted when an upload cannot be read.
const UploadFailureMessage = "The selected file could not be read as an image."

var (
	ErrNoOriginal        = errors.New("no image uploaded")
	ErrAlreadyProcessing = errors.New("an edit is already in progress")
	ErrNoEditedImage     = errors.New("no edited image")
	ErrStaleOutcome      = errors.New("edit outcome superseded")
	ErrUnknownView       = errors.New("unknown view")
)

// ViewMode selects which layout is shown.
type ViewMode string

const (
	ViewEditor  ViewMode = "editor"
	ViewPreview ViewMode = "preview"
)

// ParseViewMode parses "editor" or "preview".
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewEditor, ViewPreview:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// State is derived from the session fields.
type State string

const (
	StateEmpty      State = "empty"
	StateLoaded     State = "loaded"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateError      State = "error"
)

// Ticket identifies one edit attempt. Outcomes carrying an old ticket are
// discarded.
type Ticket uint64

// Session holds the photo, the view and the sheet spacing. Fields are only
// changed through the transition methods.
type Session struct {
	OriginalImage *Image
	EditedImage   *Image
	IsProcessing  bool
	View          ViewMode
	SpacingMM     int
	Error         string

	attempt Ticket
	seq     Ticket
}

// New returns an empty session showing the editor.
func New() Session {
	return Session{View: ViewEditor}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	switch {
	case s.IsProcessing:
		return StateProcessing
	case s.OriginalImage == nil:
		return StateEmpty
	case s.Error != "":
		return StateError
	case s.EditedImage != nil:
		return StateReady
	default:
		return StateLoaded
	}
}

// Upload replaces the photo from any state. Earlier results, errors and any
// in-flight attempt are superseded.
func (s *Session) Upload(img *Image) {
	s.OriginalImage = img
	s.EditedImage = nil
	s.IsProcessing = false
	s.Error = ""
	s.View = ViewEditor
	s.attempt = 0
}

// BeginGenerate starts an edit attempt and returns to the editor view. It
// changes nothing when no photo is loaded or an attempt is already outstanding.
func (s *Session) BeginGenerate() (Ticket, error) {
	if s.OriginalImage == nil {
		return 0, ErrNoOriginal
	}
	if s.IsProcessing {
		return 0, ErrAlreadyProcessing
	}

	s.seq++
	s.attempt = s.seq
	s.IsProcessing = true
	s.Error = ""
	s.View = ViewEditor
	return s.attempt, nil
}

// Succeed records the edited image for attempt t.
func (s *Session) Succeed(t Ticket, img *Image) error {
	if !s.current(t) {
		return ErrStaleOutcome
	}
	s.EditedImage = img
	s.IsProcessing = false
	s.Error = ""
	s.View = ViewPreview
	s.attempt = 0
	return nil
}

// Fail records a failed attempt t. The uploaded photo is kept so the user
// can try again.
func (s *Session) Fail(t Ticket) error {
	if !s.current(t) {
		return ErrStaleOutcome
	}
	s.IsProcessing = false
	s.Error = EditFailureMessage
	s.attempt = 0
	return nil
}

// Reset empties the session and restores the default spacing and view.
func (s *Session) Reset() {
	seq := s.seq
	*s = New()
	s.seq = seq
}

// SetSpacing changes the gap between photos on the sheet.
func (s *Session) SetSpacing(mm int) error {
	if err := sheet.ValidateSpacing(mm); err != nil {
		return err
	}
	s.SpacingMM = mm
	return nil
}

// SetView switches between editor and sheet preview. The preview needs an
// edited image.
func (s *Session) SetView(v ViewMode) error {
	switch v {
	case ViewEditor:
	case ViewPreview:
		if s.EditedImage == nil {
			return ErrNoEditedImage
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	s.View = v
	return nil
}

func (s *Session) current(t Ticket) bool {
	return s.IsProcessing && t != 0 && t == s.attempt
}
