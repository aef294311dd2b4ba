//go:build tesseract

package detect

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/telescope-vision/prediction-api/internal/imaging"
)

// TesseractDetector reports OCR word boxes as detections of class "text".
// It is a detection-only backend (no masks) useful for flagging labels and
// placards alongside the segmentation models.
//
// Requires a native Tesseract installation; built only under the
// "tesseract" tag.
type TesseractDetector struct {
	name string
}

// NewTesseractDetector builds the OCR-backed detector.
func NewTesseractDetector(name string) *TesseractDetector {
	return &TesseractDetector{name: name}
}

// Name returns the configured detector name.
func (d *TesseractDetector) Name() string { return d.name }

// Classes returns the single-entry class table for OCR detections.
func (d *TesseractDetector) Classes() []string { return []string{"text"} }

// Detect runs word-level OCR on img. Tesseract confidences are 0-100 and
// are scaled to 0-1 before threshold filtering. gosseract does not take a
// context; cancellation is enforced by the registry's invocation timeout.
func (d *TesseractDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	detections := make([]RawDetection, 0, len(boxes))
	for _, box := range boxes {
		confidence := box.Confidence / 100.0
		if confidence < threshold || box.Word == "" {
			continue
		}
		detections = append(detections, RawDetection{
			Box: [4]float64{
				float64(box.Box.Min.X),
				float64(box.Box.Min.Y),
				float64(box.Box.Max.X),
				float64(box.Box.Max.Y),
			},
			ClassIndex: 0,
			Confidence: confidence,
		})
	}
	return detections, nil
}
