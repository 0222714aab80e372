package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	goqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	minSize     = 64
	maxSize     = 1024
)

// PNG renders content as a QR code of size x size pixels surrounded by a
// white quiet zone of a tenth of the size on every side.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	size = clampSize(size)

	q, err := goqrcode.New(content, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	q.DisableBorder = true

	code := q.Image(size)
	pad := size / 10
	canvas := imaging.New(size+2*pad, size+2*pad, color.White)
	framed := imaging.Paste(canvas, code, image.Pt(pad, pad))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, framed, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL renders content as a PNG data URL.
func DataURL(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func clampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < minSize:
		return minSize
	case size > maxSize:
		return maxSize
	}
	return size
}
