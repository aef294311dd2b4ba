package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// pngBytes encodes a solid-color image as PNG.
func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	data := pngBytes(t, 12, 7, color.White)

	img, err := Decode(data, "test.png")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 7 {
		t.Errorf("decoded size %dx%d, want 12x7", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDecode_InvalidBytes(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), "bad.jpg")
	if err == nil {
		t.Fatal("expected error for undecodable bytes")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if decodeErr.ImageName != "bad.jpg" {
		t.Errorf("error names %q, want bad.jpg", decodeErr.ImageName)
	}
}

func TestEncodePNG_RoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 9))
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	decoded, err := Decode(data, "roundtrip")
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 5 || decoded.Bounds().Dy() != 9 {
		t.Errorf("round-trip size %dx%d, want 5x9", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}
