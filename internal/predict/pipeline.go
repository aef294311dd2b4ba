package predict

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/imaging"
)

// Options are the per-request knobs of the pipeline.
type Options struct {
	// Timeout bounds each detector invocation. Zero means unbounded.
	Timeout time.Duration

	// FailurePolicy defaults to isolate when empty.
	FailurePolicy detect.FailurePolicy

	// ClassificationTag is copied through onto the result.
	ClassificationTag string
}

// Pipeline aggregates the registered detectors' output for one image into
// an ImageResult. Safe for concurrent use across requests; the registry is
// read-only and all per-request state is local.
type Pipeline struct {
	registry   *detect.Registry
	normalizer *Normalizer
	log        *logrus.Logger
}

// NewPipeline builds a pipeline over an immutable detector registry.
func NewPipeline(registry *detect.Registry, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{registry: registry, normalizer: NewNormalizer(), log: log}
}

// Process decodes data, runs every registered detector, and assembles the
// ordered per-image result.
//
// Undecodable bytes fail immediately with *imaging.DecodeError; no
// detector is invoked. Detector failures follow opts.FailurePolicy. An
// unknown class index drops only the offending detection, recorded as a
// failure note alongside the detector's surviving predictions.
func (p *Pipeline) Process(ctx context.Context, data []byte, imageName string, opts Options) (*ImageResult, error) {
	img, err := imaging.Decode(data, imageName)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	imgWidth, imgHeight := bounds.Dx(), bounds.Dy()

	policy := opts.FailurePolicy
	if policy == "" {
		policy = detect.FailurePolicyIsolate
	}

	outcomes := p.registry.RunAll(ctx, img, opts.Timeout)

	result := &ImageResult{
		ImageName:         imageName,
		Predictions:       make([]Prediction, 0),
		ClassificationTag: opts.ClassificationTag,
	}

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			if policy == detect.FailurePolicyAbort {
				return nil, outcome.Err
			}
			p.log.WithFields(logrus.Fields{
				"detector": outcome.Spec.Name,
				"image":    imageName,
			}).WithError(outcome.Err).Warn("detector failed, isolating")
			result.Failures = append(result.Failures, DetectorFailure{
				Detector: outcome.Spec.Name,
				Error:    outcome.Err.Error(),
			})
			continue
		}

		classes := p.registry.Classes(outcome.Spec.Name)
		for _, det := range outcome.Detections {
			prediction, err := p.normalizer.Normalize(det, outcome.Spec.Name, classes, imgWidth, imgHeight)
			if err != nil {
				// A bad class index is a defect in one detection, not the
				// detector; surface it without discarding the rest.
				p.log.WithFields(logrus.Fields{
					"detector": outcome.Spec.Name,
					"image":    imageName,
				}).WithError(err).Warn("dropping malformed detection")
				result.Failures = append(result.Failures, DetectorFailure{
					Detector: outcome.Spec.Name,
					Error:    err.Error(),
				})
				continue
			}
			result.Predictions = append(result.Predictions, prediction)
		}
	}

	result.Count = len(result.Predictions)
	return result, nil
}
