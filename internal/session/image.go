package session

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnreadableImage is returned when uploaded bytes are not a decodable image.
var ErrUnreadableImage = errors.New("unreadable image")

// maxPixels bounds width*height so a small file cannot claim a huge canvas.
var maxPixels = 40_000_000

// Image is an encoded image held in memory.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// DecodeImage validates data as an image and records its format and size.
// The whole body is decoded, so truncated or corrupt files are rejected.
func DecodeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnreadableImage)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: zero sized image", ErrUnreadableImage)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnreadableImage, cfg.Width, cfg.Height, maxPixels)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	return &Image{
		Data:     data,
		MIMEType: mimeType(format, data),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// Decode returns the pixel data.
func (i *Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// PNG returns the image encoded as PNG, re-encoding only when needed.
func (i *Image) PNG() ([]byte, error) {
	if i.MIMEType == "image/png" {
		return i.Data, nil
	}

	img, err := i.Decode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func mimeType(format string, data []byte) string {
	switch format {
	case "png", "jpeg", "gif", "webp", "bmp", "tiff":
		return "image/" + format
	}
	return http.DetectContentType(data)
}
