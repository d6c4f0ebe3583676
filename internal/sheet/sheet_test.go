package sheet

import (
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/passport/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrangeRowWidth(t *testing.T) {
	tests := []struct {
		spacing int
		width   float64
		fits    bool
	}{
		{0, 210, true},
		{1, 215, false},
		{4, 230, false},
		{10, 260, false},
	}

	for _, tt := range tests {
		l, err := Arrange(tt.spacing)
		require.NoError(t, err)

		assert.Equal(t, tt.width, l.RowWidthMM, "spacing %d", tt.spacing)
		assert.Equal(t, 210+5*float64(tt.spacing), l.RowWidthMM)
		assert.Equal(t, tt.fits, l.Fits(), "spacing %d", tt.spacing)
	}
}

func TestArrangeTiles(t *testing.T) {
	for s := geometry.MinSpacingMM; s <= geometry.MaxSpacingMM; s++ {
		l, err := Arrange(s)
		require.NoError(t, err)
		require.Len(t, l.Tiles, 6)

		first, last := l.Tiles[0], l.Tiles[5]
		// centred: equal overflow on both sides
		assert.InDelta(t, -first.X, last.Right()-210, 1e-9, "spacing %d", s)
		assert.InDelta(t, l.RowWidthMM, last.Right()-first.X, 1e-9)

		for i, tile := range l.Tiles {
			assert.Equal(t, 35.0, tile.Width, "tile %d never shrinks", i)
			assert.Equal(t, 45.0, tile.Height)
			assert.Equal(t, 15.0, tile.Y)
			if i > 0 {
				assert.InDelta(t, float64(s), tile.X-l.Tiles[i-1].Right(), 1e-9)
			}
		}

		assert.Equal(t, 210.0, l.Sheet.Width)
		assert.Equal(t, 297.0, l.Sheet.Height)
	}
}

func TestArrangeZeroSpacingEdgeToEdge(t *testing.T) {
	l, err := Arrange(0)
	require.NoError(t, err)

	assert.Equal(t, 0.0, l.Tiles[0].X)
	assert.Equal(t, 210.0, l.Tiles[5].Right())
	assert.Equal(t, 0.0, l.OverflowMM())
}

func TestArrangeOverflow(t *testing.T) {
	l, err := Arrange(4)
	require.NoError(t, err)
	assert.Equal(t, 10.0, l.OverflowMM())
	assert.Equal(t, -10.0, l.Tiles[0].X)
}

func TestArrangeRejectsOutOfRange(t *testing.T) {
	for _, s := range []int{-1, 11, 100} {
		_, err := Arrange(s)
		if !errors.Is(err, ErrSpacingOutOfRange) {
			t.Errorf("Arrange(%d) error = %v, want ErrSpacingOutOfRange", s, err)
		}
	}
}
