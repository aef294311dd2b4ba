package predict

// Prediction is one canonicalized, uniquely identified detection.
//
// The eq_* fields are decomposed from the class name when it follows the
// underscore-compound naming convention (for example "valve_left_2"):
// primary equipment type, orientation, numeric modification. Decomposition
// is best-effort; see DecomposeLabel.
type Prediction struct {
	// PredictionID is a freshly generated random 128-bit identifier,
	// unique across the lifetime of the system.
	PredictionID string `json:"prediction_id"`

	// ModelName is the detector that produced this prediction.
	ModelName string `json:"ml_model_name"`

	// ClassName is the resolved class label from the detector's table.
	ClassName string `json:"class_name"`

	// Confidence is the detector's score in [0,1].
	Confidence float64 `json:"confidence"`

	// BoundingBox is [x1, y1, x2, y2] in pixel coordinates, rounded to
	// integers.
	BoundingBox [4]int `json:"bounding_box"`

	// Polygon traces the outer boundary of the detection's mask region in
	// image pixel coordinates. Empty when the detector produced no mask or
	// the mask had no foreground pixel.
	Polygon [][2]int `json:"polygon"`

	// EqType is the first label part ("valve" for "valve_left_2").
	EqType string `json:"eq_type"`

	// Orientation is the second label part, empty if absent.
	Orientation string `json:"orientation"`

	// EqModification is the third label part parsed as an integer; null
	// when missing or non-numeric.
	EqModification *int `json:"eq_modification"`
}

// DetectorFailure records one detector that contributed nothing to a
// result, and why. Lets callers distinguish "zero detections found" from
// "detector unavailable".
type DetectorFailure struct {
	Detector string `json:"detector"`
	Error    string `json:"error"`
}

// ImageResult is the response unit for one processed image.
type ImageResult struct {
	// ImageName is the caller-supplied image identifier.
	ImageName string `json:"image_name"`

	// Predictions are ordered by detector registration rank, then by
	// in-detector emission order.
	Predictions []Prediction `json:"predictions"`

	// Count is the number of predictions.
	Count int `json:"count"`

	// ClassificationTag is the caller-supplied pass-through tag, if any.
	ClassificationTag string `json:"classification_tag,omitempty"`

	// Failures lists detectors that failed under the isolate policy.
	Failures []DetectorFailure `json:"failures,omitempty"`
}
