package detect

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// Spec identifies one configured detector: its stable name, the confidence
// threshold it runs at, and its registration rank. Specs are built once
// during initialization and read-only afterwards; prediction ordering is
// defined by Rank.
type Spec struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
	Rank      int     `json:"rank"`
}

// Registry is the immutable, ordered set of detectors a process serves
// with. It is constructed at startup and passed by reference into the
// pipeline and renderer; request-handling code never looks detectors up
// through global state.
type Registry struct {
	entries []registryEntry
}

type registryEntry struct {
	spec     Spec
	detector Detector
}

// NewRegistry builds a registry from nothing. Register detectors in the
// order their output should appear in results.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a detector with its confidence threshold. Rank is the
// registration order. Registration is not safe to interleave with RunAll;
// finish building the registry before serving.
func (r *Registry) Register(d Detector, threshold float64) error {
	if d == nil {
		return fmt.Errorf("nil detector")
	}
	name := d.Name()
	if name == "" {
		return fmt.Errorf("detector has empty name")
	}
	for _, e := range r.entries {
		if e.spec.Name == name {
			return fmt.Errorf("detector %q already registered", name)
		}
	}
	r.entries = append(r.entries, registryEntry{
		spec:     Spec{Name: name, Threshold: threshold, Rank: len(r.entries)},
		detector: d,
	})
	return nil
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int { return len(r.entries) }

// Names returns detector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.spec.Name
	}
	return names
}

// Specs returns a copy of the registered specs in registration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, len(r.entries))
	for i, e := range r.entries {
		specs[i] = e.spec
	}
	return specs
}

// Classes returns the class table of the named detector, or nil if the
// name is not registered.
func (r *Registry) Classes(name string) []string {
	for _, e := range r.entries {
		if e.spec.Name == name {
			return e.detector.Classes()
		}
	}
	return nil
}

// Outcome is the result of one detector invocation inside RunAll: either
// the detections it produced or the *DetectorError it failed with.
type Outcome struct {
	Spec       Spec
	Detections []RawDetection
	Err        error
}

// RunAll invokes every registered detector against img concurrently and
// blocks until each has produced detections or a recorded failure.
//
// The returned slice is indexed by registration rank regardless of
// completion order, so concurrency never leaks into observable ordering.
// Each invocation is bounded by timeout (0 means no bound); a detector
// that outlives its deadline is reported as failed and its eventual result
// discarded. Errors are wrapped as *DetectorError carrying the detector
// name.
func (r *Registry) RunAll(ctx context.Context, img image.Image, timeout time.Duration) []Outcome {
	outcomes := make([]Outcome, len(r.entries))

	var wg sync.WaitGroup
	for i, e := range r.entries {
		wg.Add(1)
		go func(i int, e registryEntry) {
			defer wg.Done()
			outcomes[i] = runOne(ctx, e, img, timeout)
		}(i, e)
	}
	wg.Wait()

	return outcomes
}

func runOne(ctx context.Context, e registryEntry, img image.Image, timeout time.Duration) Outcome {
	dctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		detections []RawDetection
		err        error
	}
	done := make(chan result, 1)
	go func() {
		detections, err := e.detector.Detect(dctx, img, e.spec.Threshold)
		done <- result{detections: detections, err: err}
	}()

	// The select enforces the deadline even when the backend ignores its
	// context; the stray goroutine finishes into the buffered channel and
	// its result is dropped.
	select {
	case res := <-done:
		if res.err != nil {
			return Outcome{Spec: e.spec, Err: &DetectorError{Detector: e.spec.Name, Err: res.err}}
		}
		return Outcome{Spec: e.spec, Detections: res.detections}
	case <-dctx.Done():
		return Outcome{Spec: e.spec, Err: &DetectorError{Detector: e.spec.Name, Err: dctx.Err()}}
	}
}
