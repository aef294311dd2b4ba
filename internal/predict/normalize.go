package predict

import (
	"math"

	"github.com/google/uuid"

	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/imaging"
)

// Normalizer converts raw detections into Predictions. It is a pure
// function of its inputs except for identifier generation.
type Normalizer struct {
	newID func() string
}

// NewNormalizer builds a normalizer issuing random UUIDv4 identifiers.
func NewNormalizer() *Normalizer {
	return &Normalizer{newID: uuid.NewString}
}

// Normalize builds the canonical Prediction for one raw detection.
//
// Box coordinates are rounded to the nearest integer. The class name is
// resolved from the detector's table; an out-of-range index fails with
// *detect.UnknownClassError. When a mask is present it is resized to the
// image dimensions and its largest region traced into the polygon;
// otherwise the polygon is empty.
func (n *Normalizer) Normalize(det detect.RawDetection, detectorName string, classes []string, imgWidth, imgHeight int) (Prediction, error) {
	if det.ClassIndex < 0 || det.ClassIndex >= len(classes) {
		return Prediction{}, &detect.UnknownClassError{Detector: detectorName, ClassIndex: det.ClassIndex}
	}
	className := classes[det.ClassIndex]
	eqType, orientation, modification := DecomposeLabel(className)

	polygon := make([][2]int, 0)
	if det.Mask != nil {
		bitmap := det.Mask.BitmapAt(imgWidth, imgHeight)
		for _, p := range imaging.TraceLargestRegion(bitmap) {
			polygon = append(polygon, [2]int{p.X, p.Y})
		}
	}

	return Prediction{
		PredictionID: n.newID(),
		ModelName:    detectorName,
		ClassName:    className,
		Confidence:   det.Confidence,
		BoundingBox: [4]int{
			int(math.Round(det.Box[0])),
			int(math.Round(det.Box[1])),
			int(math.Round(det.Box[2])),
			int(math.Round(det.Box[3])),
		},
		Polygon:        polygon,
		EqType:         eqType,
		Orientation:    orientation,
		EqModification: modification,
	}, nil
}
