package pipeline

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PNG magic bytes for file identification
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// IsPNG checks if the given data starts with PNG magic bytes.
func IsPNG(data []byte) bool {
	return len(data) >= len(pngMagic) && bytes.Equal(data[:len(pngMagic)], pngMagic)
}

// DefaultMaxImagePixels bounds width*height of a decoded image. A few
// hundred kilobytes of compressed PNG can describe a far larger canvas.
const DefaultMaxImagePixels int64 = 40_000_000

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or WebP data no larger than
// DefaultMaxImagePixels. It returns the decoded image and the format name
// reported by the codec.
func DecodeImage(data []byte) (image.Image, string, error) {
	return DecodeImageWithin(data, DefaultMaxImagePixels)
}

// DecodeImageWithin is DecodeImage with an explicit pixel limit. The header
// is checked before any pixel data is allocated.
func DecodeImageWithin(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrImageEmpty
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); maxPixels > 0 && pixels > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d image exceeds the %d pixel limit",
			ErrImageDecodeFail, cfg.Width, cfg.Height, maxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}
	return img, format, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrImageEmpty
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEncodeFail, err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64PNG encodes img as a standard base64 PNG string, the shape most
// HTTP diffusion servers expect for init images.
func EncodeBase64PNG(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64Image decodes a base64 image, tolerating a data URL prefix.
func DecodeBase64Image(s string) (image.Image, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrImageDecodeFail, err)
	}
	img, _, err := DecodeImage(data)
	return img, err
}

// FitWithin scales img down so that neither side exceeds maxSide, keeping the
// aspect ratio. Images that already fit are returned unchanged.
func FitWithin(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}
	scale := float64(maxSide) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SquarePad scales img to fit a size x size square and centers it on a
// transparent canvas.
func SquarePad(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	scale := float64(size) / float64(max(b.Dx(), b.Dy()))
	nw := max(1, int(float64(b.Dx())*scale))
	nh := max(1, int(float64(b.Dy())*scale))
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	offX := (size - nw) / 2
	offY := (size - nh) / 2
	draw.CatmullRom.Scale(dst, image.Rect(offX, offY, offX+nw, offY+nh), img, b, draw.Over, nil)
	return dst
}

// ToNRGBA returns img as an *image.NRGBA anchored at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
