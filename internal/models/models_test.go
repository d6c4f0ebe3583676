package models

import (
	"testing"

	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStatus(t *testing.T) {
	snap := session.Snapshot{
		ID:            "abc",
		State:         session.StateReady,
		View:          session.ViewPreview,
		OriginalImage: &session.Image{Data: []byte("12345"), MIMEType: "image/jpeg", Width: 600, Height: 800},
		EditedImage:   &session.Image{Data: []byte("123"), MIMEType: "image/png", Width: 1200, Height: 1600},
		SpacingMM:     4,
	}

	status := NewSessionStatus(snap, "hello")

	assert.Equal(t, "ready", status.State)
	assert.Equal(t, "preview", status.View)
	assert.Equal(t, "hello", status.Notice)
	require.NotNil(t, status.OriginalImage)
	assert.Equal(t, "/image/abc/original", status.OriginalImage.ImageURL)
	assert.Equal(t, 5, status.OriginalImage.Size)
	require.NotNil(t, status.EditedImage)
	assert.Equal(t, "/image/abc/edited", status.EditedImage.ImageURL)

	require.NotNil(t, status.Sheet)
	assert.Equal(t, 230.0, status.Sheet.RowWidthMM)
	assert.False(t, status.Sheet.Fits)
	assert.Equal(t, 10.0, status.Sheet.OverflowMM)
	assert.Equal(t, 6, status.Sheet.Tiles)
}

func TestNewSessionStatusEmpty(t *testing.T) {
	status := NewSessionStatus(session.Snapshot{ID: "x", State: session.StateEmpty, View: session.ViewEditor}, "")

	assert.Nil(t, status.OriginalImage)
	assert.Nil(t, status.EditedImage)
	require.NotNil(t, status.Sheet)
	assert.True(t, status.Sheet.Fits)
	assert.Zero(t, status.Sheet.OverflowMM)
}
