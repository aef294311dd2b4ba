//go:build !onnx

package detect

import (
	"context"
	"errors"
	"image"
)

// ONNXDetector is the placeholder compiled without the "onnx" build tag.
// Construction succeeds so wiring code stays tag-agnostic; every Detect
// call fails.
type ONNXDetector struct {
	name    string
	classes []string
}

// InitONNXRuntime is a no-op without the "onnx" build tag.
func InitONNXRuntime(libraryPath string) error { return nil }

// NewONNXDetector builds the placeholder detector.
func NewONNXDetector(name, modelPath string, classes []string) *ONNXDetector {
	return &ONNXDetector{name: name, classes: classes}
}

// Name returns the configured detector name.
func (d *ONNXDetector) Name() string { return d.name }

// Classes returns the configured class table.
func (d *ONNXDetector) Classes() []string { return d.classes }

// Detect fails: the binary was built without the onnx tag.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error) {
	return nil, errors.New("onnx build tag is not enabled")
}
