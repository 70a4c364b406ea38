package pipeline

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	return img
}

func TestIsPNG(t *testing.T) {
	data, err := EncodePNG(testImage(4, 4))
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	if !IsPNG(data) {
		t.Error("IsPNG() = false for encoded PNG")
	}

	for _, data := range [][]byte{nil, {0x89, 0x50}, {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}} {
		if IsPNG(data) {
			t.Errorf("IsPNG(%v) = true, want false", data)
		}
	}
}

func TestDecodeImage_Formats(t *testing.T) {
	src := testImage(8, 6)

	pngData, _ := EncodePNG(src)
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, src, nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", pngData, "png"},
		{"jpeg", jpg.Bytes(), "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := DecodeImage(tt.data)
			if err != nil {
				t.Fatalf("DecodeImage() error = %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
				t.Errorf("bounds = %v, want 8x6", img.Bounds())
			}
		})
	}
}

func TestDecodeImage_Errors(t *testing.T) {
	if _, _, err := DecodeImage(nil); !errors.Is(err, ErrImageEmpty) {
		t.Errorf("DecodeImage(nil) error = %v, want ErrImageEmpty", err)
	}
	if _, _, err := DecodeImage([]byte("definitely not an image")); !errors.Is(err, ErrImageDecodeFail) {
		t.Errorf("DecodeImage(garbage) error = %v, want ErrImageDecodeFail", err)
	}
}

// pngHeader returns a grayscale PNG signature and IHDR chunk claiming
// w x h pixels. It carries no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 4, 17)
	copy(ihdr, "IHDR")
	ihdr = binary.BigEndian.AppendUint32(ihdr, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 0, 0, 0, 0) // 8-bit gray, no interlace

	out := append([]byte(nil), pngMagic...)
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, ihdr...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(ihdr))
}

func TestDecodeImage_RejectsOversizedDimensions(t *testing.T) {
	data := pngHeader(20000, 20000)

	_, _, err := DecodeImage(data)
	if !errors.Is(err, ErrImageDecodeFail) {
		t.Fatalf("DecodeImage() error = %v, want ErrImageDecodeFail", err)
	}
	if !strings.Contains(err.Error(), "20000x20000") {
		t.Errorf("error = %q, want the rejected dimensions", err)
	}
}

func TestDecodeImageWithin(t *testing.T) {
	data, err := EncodePNG(testImage(10, 10))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		maxPixels int64
		wantErr   bool
	}{
		{"under limit", 101, false},
		{"at limit", 100, false},
		{"over limit", 99, true},
		{"no limit", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := DecodeImageWithin(data, tt.maxPixels)
			if tt.wantErr {
				if !errors.Is(err, ErrImageDecodeFail) {
					t.Errorf("error = %v, want ErrImageDecodeFail", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if img.Bounds().Dx() != 10 {
				t.Errorf("width = %d, want 10", img.Bounds().Dx())
			}
		})
	}
}

func TestDecodeBase64Image_DataURL(t *testing.T) {
	data, _ := EncodePNG(testImage(3, 3))
	encoded := base64.StdEncoding.EncodeToString(data)

	for _, s := range []string{encoded, "data:image/png;base64," + encoded} {
		img, err := DecodeBase64Image(s)
		if err != nil {
			t.Fatalf("DecodeBase64Image() error = %v", err)
		}
		if img.Bounds().Dx() != 3 {
			t.Errorf("width = %d, want 3", img.Bounds().Dx())
		}
	}

	if _, err := DecodeBase64Image("!!!"); !errors.Is(err, ErrImageDecodeFail) {
		t.Errorf("DecodeBase64Image(invalid) error = %v, want ErrImageDecodeFail", err)
	}
}

func TestFitWithin(t *testing.T) {
	small := testImage(10, 5)
	if got := FitWithin(small, 20); got != image.Image(small) {
		t.Error("FitWithin() should return images that already fit unchanged")
	}

	got := FitWithin(testImage(200, 100), 50)
	if got.Bounds().Dx() != 50 || got.Bounds().Dy() != 25 {
		t.Errorf("FitWithin() bounds = %v, want 50x25", got.Bounds())
	}
}

func TestSquarePad(t *testing.T) {
	got := SquarePad(testImage(40, 20), 64)
	if got.Bounds().Dx() != 64 || got.Bounds().Dy() != 64 {
		t.Fatalf("SquarePad() bounds = %v, want 64x64", got.Bounds())
	}
	// Top rows are padding.
	if a := got.NRGBAAt(32, 0).A; a != 0 {
		t.Errorf("padding alpha = %d, want 0", a)
	}
	if a := got.NRGBAAt(32, 32).A; a == 0 {
		t.Error("center pixel should carry image content")
	}
}

func TestToNRGBA_OffsetBounds(t *testing.T) {
	src := testImage(10, 10).SubImage(image.Rect(2, 2, 6, 6))
	got := ToNRGBA(src)
	if got.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("ToNRGBA() bounds = %v, want (0,0)-(4,4)", got.Bounds())
	}
}
