package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/passport/internal/providers"
)

// Snapshot is a read-only copy of a session taken under the controller lock.
// The images are shared and must not be modified.
type Snapshot struct {
	ID            string
	State         State
	View          ViewMode
	OriginalImage *Image
	EditedImage   *Image
	IsProcessing  bool
	SpacingMM     int
	Error         string
}

// Controller owns one Session. Every user action goes through it and is
// applied as a single state update.
type Controller struct {
	id          string
	editor      providers.Editor
	instruction string

	mu      sync.Mutex
	session Session
	cancel  context.CancelFunc
	notice  string
	wg      sync.WaitGroup

	lastActive time.Time
}

// NewController returns a controller for an empty session.
func NewController(id string, editor providers.Editor, instruction string) *Controller {
	if instruction == "" {
		instruction = providers.DefaultInstruction
	}
	return &Controller{
		id:          id,
		editor:      editor,
		instruction: instruction,
		session:     New(),
		lastActive:  time.Now(),
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Snapshot returns the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// LastActive is the time of the most recent action.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch marks the session as in use without changing it.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.touchLocked()
	c.mu.Unlock()
}

// Upload validates data and loads it as the new photo. An unreadable file
// leaves the session unchanged and posts a notice.
func (c *Controller) Upload(data []byte) error {
	img, err := DecodeImage(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	if err != nil {
		c.notice = UploadFailureMessage
		slog.Warn("Upload rejected", "session_id", c.id, "err", err)
		return err
	}

	c.cancelLocked()
	c.session.Upload(img)
	slog.Info("Image uploaded", "session_id", c.id, "mime", img.MIMEType, "width", img.Width, "height", img.Height)
	return nil
}

// Generate starts one edit of the uploaded photo. The edit runs until the
// provider answers or ctx is cancelled; the returned channel is closed once
// its outcome has been applied (or discarded as stale).
func (c *Controller) Generate(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	ticket, err := c.session.BeginGenerate()
	if err != nil {
		return nil, err
	}

	editCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	original := c.session.OriginalImage
	req := providers.EditRequest{
		Image:       original.Data,
		MIMEType:    original.MIMEType,
		Instruction: c.instruction,
	}

	slog.Info("Edit requested", "session_id", c.id, "attempt", ticket)

	done := make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()

		start := time.Now()
		img, err := c.runEdit(editCtx, req)
		c.finish(ticket, img, err, time.Since(start))
	}()

	return done, nil
}

func (c *Controller) runEdit(ctx context.Context, req providers.EditRequest) (*Image, error) {
	if c.editor == nil {
		return nil, errors.New("no image editor configured")
	}

	res, err := c.editor.Edit(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, providers.ErrNoImage
	}

	img, err := DecodeImage(res.Data)
	if err != nil {
		return nil, fmt.Errorf("provider returned invalid image: %w", err)
	}
	return img, nil
}

func (c *Controller) finish(t Ticket, img *Image, editErr error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if editErr != nil {
		err = c.session.Fail(t)
	} else {
		err = c.session.Succeed(t, img)
	}

	switch {
	case errors.Is(err, ErrStaleOutcome):
		slog.Info("Discarding superseded edit outcome", "session_id", c.id, "attempt", t)
		return
	case editErr != nil:
		slog.Error("Edit failed", "session_id", c.id, "attempt", t, "duration", elapsed, "err", editErr)
	default:
		slog.Info("Edit completed", "session_id", c.id, "attempt", t, "duration", elapsed, "width", img.Width, "height", img.Height)
	}
	c.cancel = nil
}

// Reset empties the session. An in-flight edit is cancelled and its outcome
// discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()

	c.cancelLocked()
	c.session.Reset()
	c.notice = ""
	slog.Info("Session reset", "session_id", c.id)
}

// SetSpacing changes the sheet spacing in millimetres.
func (c *Controller) SetSpacing(mm int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	return c.session.SetSpacing(mm)
}

// SetView switches between the editor and the sheet preview.
func (c *Controller) SetView(v ViewMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	return c.session.SetView(v)
}

// Notify posts a one-shot message for the next page render.
func (c *Controller) Notify(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = msg
}

// Notice returns the pending notice without clearing it.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// TakeNotice returns and clears the pending notice.
func (c *Controller) TakeNotice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.notice
	c.notice = ""
	return n
}

// Close cancels any in-flight edit and waits for it to return.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) touchLocked() {
	c.lastActive = time.Now()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.session
	return Snapshot{
		ID:            c.id,
		State:         s.State(),
		View:          s.View,
		OriginalImage: s.OriginalImage,
		EditedImage:   s.EditedImage,
		IsProcessing:  s.IsProcessing,
		SpacingMM:     s.SpacingMM,
		Error:         s.Error,
	}
}
