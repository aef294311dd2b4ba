package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DecodeError indicates that the request bytes could not be decoded as an
// image. It is fatal for the request: no detector runs against undecodable
// input.
type DecodeError struct {
	// ImageName is the caller-supplied identifier of the offending image,
	// used to name the failure in client-facing responses.
	ImageName string

	// Err is the underlying codec error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image %q: %v", e.ImageName, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode converts raw request bytes (JPEG, PNG, or GIF) into an image.
//
// The returned image is treated as read-only for the rest of the request:
// detectors and the renderer share it concurrently without copying.
// A *DecodeError carrying name is returned for undecodable bytes.
func Decode(data []byte, name string) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{ImageName: name, Err: err}
	}
	return img, nil
}

// EncodePNG serializes an image to PNG bytes. PNG is used for all rendered
// output so annotation overlays survive without compression artifacts.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
