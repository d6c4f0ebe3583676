package providers

import (
	"context"
	"errors"
)

// DefaultInstruction is sent with every edit request unless configured otherwise.
const DefaultInstruction = "Auto-enhance this portrait to 4K resolution quality. Remove background and set a perfect solid professional blue background. Sharpen the face and ensure perfect centering for a passport photo (35mm x 45mm style)."

// ErrNoImage is returned when a provider answers without an image.
var ErrNoImage = errors.New("no image returned")

// Config represents the configuration for an image editing provider
type Config struct {
	Model       string
	Temperature float64
}

// EditRequest is one image plus the instruction describing the edit.
type EditRequest struct {
	Image       []byte
	MIMEType    string
	Instruction string
}

// EditResult is the edited image as returned by the provider.
type EditResult struct {
	Data     []byte
	MIMEType string
	Provider string
	Model    string
	Notes    string
}

// Editor defines the interface for an AI image editing provider. Edit makes
// exactly one attempt.
type Editor interface {
	Edit(ctx context.Context, req EditRequest) (*EditResult, error)
}

// EditorFunc adapts a function to the Editor interface.
type EditorFunc func(ctx context.Context, req EditRequest) (*EditResult, error)

func (f EditorFunc) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	return f(ctx, req)
}
