package annotate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/imaging"
)

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fullMask(t *testing.T, w, h, x1, y1, x2, y2 int) *imaging.Mask {
	t.Helper()
	data := make([]float32, w*h)
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			data[y*w+x] = 1
		}
	}
	m, err := imaging.NewMask(w, h, data)
	require.NoError(t, err)
	return m
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))
	return log
}

func newRenderer(t *testing.T, detectors ...detect.Detector) *Renderer {
	t.Helper()
	r := detect.NewRegistry()
	for _, d := range detectors {
		require.NoError(t, r.Register(d, 0.5))
	}
	return NewRenderer(r, quietLogger())
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRender_PreservesDimensions(t *testing.T) {
	stub := detect.NewStub("valves", []string{"valve"}, []detect.RawDetection{
		{Box: [4]float64{10, 10, 40, 40}, Confidence: 0.9},
	})
	r := newRenderer(t, stub)

	out, err := r.Render(context.Background(), whitePNG(t, 64, 48), "a.png", Options{Timeout: time.Second})
	require.NoError(t, err)

	img := decodePNG(t, out)
	require.Equal(t, 64, img.Bounds().Dx())
	require.Equal(t, 48, img.Bounds().Dy())
}

func TestRender_MaskBlendsPixels(t *testing.T) {
	mask := fullMask(t, 64, 64, 30, 30, 50, 50)
	stub := detect.NewStub("valves", []string{"valve"}, []detect.RawDetection{
		{Box: [4]float64{30, 30, 50, 50}, Confidence: 0.9, Mask: mask},
	})
	r := newRenderer(t, stub)

	out, err := r.Render(context.Background(), whitePNG(t, 64, 64), "a.png", Options{Timeout: time.Second})
	require.NoError(t, err)
	img := decodePNG(t, out)

	// Inside the mask the first detector's red tint must show.
	r8, g8, b8, _ := img.At(40, 40).RGBA()
	require.Greater(t, r8>>8, g8>>8)
	require.Greater(t, r8>>8, b8>>8)

	// Far corner is untouched white.
	r8, g8, b8, _ = img.At(62, 62).RGBA()
	require.Equal(t, uint32(255), r8>>8)
	require.Equal(t, uint32(255), g8>>8)
	require.Equal(t, uint32(255), b8>>8)
}

func TestRender_BoxOutlineDrawn(t *testing.T) {
	stub := detect.NewStub("valves", []string{"valve"}, []detect.RawDetection{
		{Box: [4]float64{20, 30, 50, 55}, Confidence: 0.9},
	})
	r := newRenderer(t, stub)

	out, err := r.Render(context.Background(), whitePNG(t, 64, 64), "a.png", Options{Timeout: time.Second})
	require.NoError(t, err)
	img := decodePNG(t, out)

	// Top edge of the box carries the pure palette color.
	r8, g8, b8, _ := img.At(35, 30).RGBA()
	require.Equal(t, uint32(255), r8>>8)
	require.Equal(t, uint32(0), g8>>8)
	require.Equal(t, uint32(0), b8>>8)
}

func TestRender_LabelClampedAtTopEdge(t *testing.T) {
	// A box touching y=0 leaves no room above it; rendering must not
	// panic and must still produce a same-size image.
	stub := detect.NewStub("valves", []string{"valve"}, []detect.RawDetection{
		{Box: [4]float64{0, 0, 30, 30}, Confidence: 0.9},
	})
	r := newRenderer(t, stub)

	out, err := r.Render(context.Background(), whitePNG(t, 64, 64), "a.png", Options{Timeout: time.Second})
	require.NoError(t, err)

	img := decodePNG(t, out)
	require.Equal(t, 64, img.Bounds().Dx())
	require.Equal(t, 64, img.Bounds().Dy())
}

func TestRender_IsolateSkipsFailedDetector(t *testing.T) {
	broken := detect.NewStub("broken", []string{"x"}, nil)
	broken.Err = errors.New("backend down")
	healthy := detect.NewStub("healthy", []string{"valve"}, []detect.RawDetection{
		{Box: [4]float64{5, 10, 20, 20}, Confidence: 0.9},
	})
	r := newRenderer(t, broken, healthy)

	out, err := r.Render(context.Background(), whitePNG(t, 64, 64), "a.png", Options{Timeout: time.Second})
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestRender_AbortPolicy(t *testing.T) {
	broken := detect.NewStub("broken", []string{"x"}, nil)
	broken.Err = errors.New("backend down")
	r := newRenderer(t, broken)

	_, err := r.Render(context.Background(), whitePNG(t, 64, 64), "a.png", Options{
		Timeout:       time.Second,
		FailurePolicy: detect.FailurePolicyAbort,
	})

	var detErr *detect.DetectorError
	require.ErrorAs(t, err, &detErr)
}

func TestRender_UndecodableImage(t *testing.T) {
	r := newRenderer(t, detect.NewStub("valves", []string{"x"}, nil))

	_, err := r.Render(context.Background(), []byte("junk"), "bad.png", Options{})

	var decodeErr *imaging.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDetectorColor_Cycles(t *testing.T) {
	require.Equal(t, DetectorColor(0), DetectorColor(len(paletteHex)))
	require.Equal(t, color.NRGBA{R: 255, A: 255}, DetectorColor(0))
	require.Equal(t, color.NRGBA{G: 255, A: 255}, DetectorColor(1))
}
