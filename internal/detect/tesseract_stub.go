//go:build !tesseract

package detect

import (
	"context"
	"errors"
	"image"
)

// TesseractDetector is the no-OCR placeholder compiled without the
// "tesseract" build tag. Construction succeeds so wiring code stays
// tag-agnostic; every Detect call fails.
type TesseractDetector struct {
	name string
}

// NewTesseractDetector builds the placeholder detector.
func NewTesseractDetector(name string) *TesseractDetector {
	return &TesseractDetector{name: name}
}

// Name returns the configured detector name.
func (d *TesseractDetector) Name() string { return d.name }

// Classes returns the single-entry class table for OCR detections.
func (d *TesseractDetector) Classes() []string { return []string{"text"} }

// Detect fails: the binary was built without the tesseract tag.
func (d *TesseractDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error) {
	return nil, errors.New("tesseract build tag is not enabled")
}
