package detect

import (
	"context"
	"image"
	"time"
)

// StubDetector returns canned detections. It backs tests and local
// development when no inference service is configured, and doubles as the
// fault-injection point for failure-policy tests.
type StubDetector struct {
	// DetectorName is the stable name reported by Name().
	DetectorName string

	// ClassTable is the class-name table reported by Classes().
	ClassTable []string

	// Detections are returned from Detect, filtered by threshold.
	Detections []RawDetection

	// Err, when set, fails every Detect call.
	Err error

	// Delay is waited before responding, honoring context cancellation.
	// Used to exercise timeouts and completion-order shuffles.
	Delay time.Duration
}

// NewStub builds a stub detector with a name, class table, and the
// detections every call returns.
func NewStub(name string, classes []string, detections []RawDetection) *StubDetector {
	return &StubDetector{DetectorName: name, ClassTable: classes, Detections: detections}
}

// Name returns the configured detector name.
func (s *StubDetector) Name() string { return s.DetectorName }

// Classes returns the configured class table.
func (s *StubDetector) Classes() []string { return s.ClassTable }

// Detect returns the canned detections with confidence >= threshold, in
// their configured order. The shared image is never touched.
func (s *StubDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]RawDetection, 0, len(s.Detections))
	for _, det := range s.Detections {
		if det.Confidence >= threshold {
			out = append(out, det)
		}
	}
	return out, nil
}
