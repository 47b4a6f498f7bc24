// Package imgutil sniffs uploaded images without decoding their pixels.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"merabuchpan/internal/domain"
)

// Info describes an image header.
type Info struct {
	Format   string
	MIMEType string
	Width    int
	Height   int
}

var formatMIME = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Inspect reads the header of data and reports its format and size. Only
// PNG, JPEG and WEBP are recognised; anything else yields
// domain.ErrUnsupportedImage.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, domain.ErrEmptyPhoto
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	mime, ok := formatMIME[format]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, format)
	}
	return Info{Format: format, MIMEType: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

// NewPhoto validates data and wraps it as a domain.Photo. The MIME type is
// taken from the content, not from the client's declaration.
func NewPhoto(filename string, data []byte) (domain.Photo, error) {
	info, err := Inspect(data)
	if err != nil {
		return domain.Photo{}, err
	}
	return domain.Photo{
		Filename: filename,
		MIMEType: info.MIMEType,
		Data:     data,
		Width:    info.Width,
		Height:   info.Height,
	}, nil
}
