//go:build onnx

package detect

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// onnxInputSize is the square inference resolution of the exported models.
const onnxInputSize = 640

// ONNXDetector runs a YOLO-style exported model in-process through ONNX
// Runtime. Detection-only: the exported detection head carries boxes,
// class scores, and no masks. Built only under the "onnx" tag; the shared
// runtime library must be initialized by the caller once per process via
// InitONNXRuntime.
type ONNXDetector struct {
	name      string
	classes   []string
	modelPath string

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

var onnxInitOnce sync.Once

// InitONNXRuntime points the runtime at its shared library and initializes
// the environment. Safe to call more than once.
func InitONNXRuntime(libraryPath string) error {
	var err error
	onnxInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		err = ort.InitializeEnvironment()
	})
	return err
}

// NewONNXDetector builds an in-process detector for one exported model.
// classes must match the model's training class order.
func NewONNXDetector(name, modelPath string, classes []string) *ONNXDetector {
	return &ONNXDetector{name: name, classes: classes, modelPath: modelPath}
}

// Name returns the configured detector name.
func (d *ONNXDetector) Name() string { return d.name }

// Classes returns the configured class table.
func (d *ONNXDetector) Classes() []string { return d.classes }

func (d *ONNXDetector) ensureSession() (*ort.DynamicAdvancedSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		return d.session, nil
	}
	session, err := ort.NewDynamicAdvancedSession(
		d.modelPath,
		[]string{"images"},
		[]string{"output0"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	d.session = session
	return d.session, nil
}

// Detect resizes img to the model's input square, runs inference, and
// decodes the [1, 4+numClasses, N] output tensor into RawDetections with
// NMS applied. Session access is serialized; the registry timeout bounds
// the call since ONNX Runtime does not take a context.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error) {
	session, err := d.ensureSession()
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	input := prepareONNXInput(img)

	inputShape := ort.NewShape(1, 3, onnxInputSize, onnxInputSize)
	inputTensor, err := ort.NewTensor(inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, &MalformedOutputError{Detector: d.name, Detail: "output tensor is not float32"}
	}
	defer outputTensor.Destroy()

	return d.decodeOutput(outputTensor.GetData(), imgW, imgH, threshold)
}

// prepareONNXInput resizes to the inference square and lays pixels out in
// CHW planes normalized to [0,1].
func prepareONNXInput(img image.Image) []float32 {
	resized := imaging.Resize(img, onnxInputSize, onnxInputSize, imaging.Lanczos)
	input := make([]float32, 3*onnxInputSize*onnxInputSize)
	stride := onnxInputSize * onnxInputSize

	idx := 0
	for y := 0; y < onnxInputSize; y++ {
		for x := 0; x < onnxInputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			input[idx] = float32(r>>8) / 255.0
			input[idx+stride] = float32(g>>8) / 255.0
			input[idx+2*stride] = float32(b>>8) / 255.0
			idx++
		}
	}
	return input
}

// decodeOutput converts the transposed YOLO head output into detections in
// source-image coordinates, keeping candidates above threshold and running
// IoU suppression at 0.7.
func (d *ONNXDetector) decodeOutput(output []float32, imgW, imgH int, threshold float64) ([]RawDetection, error) {
	numClasses := len(d.classes)
	rows := numClasses + 4
	if len(output)%rows != 0 {
		return nil, &MalformedOutputError{
			Detector: d.name,
			Detail:   fmt.Sprintf("output length %d not divisible by %d", len(output), rows),
		}
	}
	anchors := len(output) / rows

	candidates := make([]RawDetection, 0)
	for i := 0; i < anchors; i++ {
		classID, best := 0, float32(0)
		for j := 0; j < numClasses; j++ {
			if score := output[(j+4)*anchors+i]; score > best {
				best = score
				classID = j
			}
		}
		if float64(best) < threshold {
			continue
		}

		xc := output[i]
		yc := output[anchors+i]
		w := output[2*anchors+i]
		h := output[3*anchors+i]

		x1 := float64(xc-w/2) / onnxInputSize * float64(imgW)
		y1 := float64(yc-h/2) / onnxInputSize * float64(imgH)
		x2 := float64(xc+w/2) / onnxInputSize * float64(imgW)
		y2 := float64(yc+h/2) / onnxInputSize * float64(imgH)

		candidates = append(candidates, RawDetection{
			Box:        [4]float64{x1, y1, x2, y2},
			ClassIndex: classID,
			Confidence: float64(best),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	kept := make([]RawDetection, 0, len(candidates))
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if c.ClassIndex == k.ClassIndex && iou(c.Box, k.Box) > 0.7 {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func iou(a, b [4]float64) float64 {
	ix1 := max64(a[0], b[0])
	iy1 := max64(a[1], b[1])
	ix2 := min64(a[2], b[2])
	iy2 := min64(a[3], b[3])

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
