package detect

import (
	"context"
	"fmt"
	"image"

	"github.com/telescope-vision/prediction-api/internal/imaging"
)

// RawDetection is one object instance as reported by a detector backend,
// before normalization into a Prediction.
//
// Box coordinates are pixel coordinates in the source image, x2 >= x1 and
// y2 >= y1. ClassIndex must be valid within the owning detector's class
// table. Mask is optional; when present its grid resolution is whatever the
// model infers at, not necessarily the image size.
type RawDetection struct {
	Box        [4]float64
	ClassIndex int
	Confidence float64
	Mask       *imaging.Mask
}

// Detector is the capability interface for one configured model backend.
//
// Detect returns every instance found in img with confidence at or above
// threshold. Implementations must not mutate img, must honor ctx
// cancellation where their underlying call supports it, and must be safe
// for concurrent invocation.
type Detector interface {
	// Name is the stable identifier reported in predictions and failures.
	Name() string

	// Classes is the detector's class-name table, indexed by ClassIndex.
	Classes() []string

	Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error)
}

// DetectorError reports that one detector invocation failed or timed out.
// Under the isolate failure policy it is recorded on the result; under
// abort it fails the whole request.
type DetectorError struct {
	Detector string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %s: %v", e.Detector, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// UnknownClassError reports a class index with no entry in the detector's
// class table. It is a defect in the backend: the offending detection is
// dropped and recorded, but other detections survive.
type UnknownClassError struct {
	Detector   string
	ClassIndex int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("detector %s: class index %d has no class table entry", e.Detector, e.ClassIndex)
}

// MalformedOutputError reports backend output whose box, class, confidence,
// and mask arrays disagree in length. Adapters raise it instead of letting
// mismatched shapes leak into the pipeline; it is handled exactly like a
// DetectorError.
type MalformedOutputError struct {
	Detector string
	Detail   string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("detector %s returned malformed output: %s", e.Detector, e.Detail)
}

// checkArity validates the parallel-array contract shared by the adapters.
// masks may be zero-length (detection-only mode) or match the other arrays.
func checkArity(detector string, boxes, classes, confidences, masks int) error {
	if boxes != classes || boxes != confidences {
		return &MalformedOutputError{
			Detector: detector,
			Detail: fmt.Sprintf("boxes=%d classes=%d confidences=%d", boxes, classes, confidences),
		}
	}
	if masks != 0 && masks != boxes {
		return &MalformedOutputError{
			Detector: detector,
			Detail:   fmt.Sprintf("boxes=%d masks=%d", boxes, masks),
		}
	}
	return nil
}
