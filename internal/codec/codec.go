// Package codec turns images into the base64 PNG strings carried in JSON
// responses, and back.
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ToBase64 returns the standard base64 encoding of png data.
func ToBase64(pngData []byte) string {
	return base64.StdEncoding.EncodeToString(pngData)
}

// EncodeBase64PNG encodes img as PNG and returns it base64 encoded.
func EncodeBase64PNG(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return ToBase64(data), nil
}

// DecodeBase64PNG reverses EncodeBase64PNG. A data URI prefix is tolerated.
func DecodeBase64PNG(s string) (image.Image, error) {
	if i := strings.Index(s, ","); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// Crop copies the rect portion of img into a new RGBA image anchored at the
// origin, so the encoded crop does not depend on the source's backing store.
func Crop(img image.Image, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, img, rect, draw.Src, nil)
	return dst
}

// ToRGBA returns img as an origin-anchored *image.RGBA, copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	return Crop(img, img.Bounds())
}
