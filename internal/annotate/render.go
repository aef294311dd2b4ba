package annotate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/imaging"
)

const (
	// maskAlpha is the overlay opacity for mask regions.
	maskAlpha = 100

	// labelAlpha is the opacity of the label background strip.
	labelAlpha = 200

	// boxThickness is the bounding-box outline width in pixels.
	boxThickness = 2
)

// Options are the per-request knobs of the renderer. Failure handling
// mirrors the prediction pipeline.
type Options struct {
	// Timeout bounds each detector invocation. Zero means unbounded.
	Timeout time.Duration

	// FailurePolicy defaults to isolate when empty. Under isolate a failed
	// detector simply paints nothing.
	FailurePolicy detect.FailurePolicy
}

// Renderer composites detector output onto the source image.
type Renderer struct {
	registry *detect.Registry
	log      *logrus.Logger
}

// NewRenderer builds a renderer over an immutable detector registry.
func NewRenderer(registry *detect.Registry, log *logrus.Logger) *Renderer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Renderer{registry: registry, log: log}
}

// Render decodes data, re-runs every registered detector, and returns the
// annotated image as PNG bytes.
//
// All mask overlays are painted first in registration order, then every
// box and label on top, so labels are never buried under a later
// detector's mask. The output image has the same dimensions as the input.
func (r *Renderer) Render(ctx context.Context, data []byte, imageName string, opts Options) ([]byte, error) {
	img, err := imaging.Decode(data, imageName)
	if err != nil {
		return nil, err
	}

	policy := opts.FailurePolicy
	if policy == "" {
		policy = detect.FailurePolicyIsolate
	}

	outcomes := r.registry.RunAll(ctx, img, opts.Timeout)
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			if policy == detect.FailurePolicyAbort {
				return nil, outcome.Err
			}
			r.log.WithFields(logrus.Fields{
				"detector": outcome.Spec.Name,
				"image":    imageName,
			}).WithError(outcome.Err).Warn("detector failed, rendering without it")
		}
	}

	bounds := img.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	// Masks first, back to front.
	for _, outcome := range outcomes {
		c := DetectorColor(outcome.Spec.Rank)
		for _, det := range outcome.Detections {
			if det.Mask == nil {
				continue
			}
			paintMask(canvas, det.Mask.BitmapAt(bounds.Dx(), bounds.Dy()), c)
		}
	}

	// Boxes and labels on top.
	for _, outcome := range outcomes {
		c := DetectorColor(outcome.Spec.Rank)
		classes := r.registry.Classes(outcome.Spec.Name)
		for _, det := range outcome.Detections {
			x1 := int(math.Round(det.Box[0]))
			y1 := int(math.Round(det.Box[1]))
			x2 := int(math.Round(det.Box[2]))
			y2 := int(math.Round(det.Box[3]))

			drawBox(canvas, x1, y1, x2, y2, c)

			className := "unknown"
			if det.ClassIndex >= 0 && det.ClassIndex < len(classes) {
				className = classes[det.ClassIndex]
			}
			label := fmt.Sprintf("%s:%s %.2f", outcome.Spec.Name, className, det.Confidence)
			drawLabel(canvas, x1, y1, label, c)
		}
	}

	return imaging.EncodePNG(canvas)
}

// paintMask alpha-blends the detector color over every foreground cell.
func paintMask(canvas *image.NRGBA, bm *imaging.Bitmap, c color.NRGBA) {
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			if bm.At(x, y) {
				blendPixel(canvas, x, y, c, maskAlpha)
			}
		}
	}
}

// blendPixel composites c over the canvas pixel at the given opacity.
func blendPixel(canvas *image.NRGBA, x, y int, c color.NRGBA, alpha uint8) {
	if !(image.Point{X: x, Y: y}).In(canvas.Bounds()) {
		return
	}
	i := canvas.PixOffset(x, y)
	a := int(alpha)
	canvas.Pix[i] = uint8((int(c.R)*a + int(canvas.Pix[i])*(255-a)) / 255)
	canvas.Pix[i+1] = uint8((int(c.G)*a + int(canvas.Pix[i+1])*(255-a)) / 255)
	canvas.Pix[i+2] = uint8((int(c.B)*a + int(canvas.Pix[i+2])*(255-a)) / 255)
	canvas.Pix[i+3] = 255
}

// drawBox draws the box outline, clamped to the canvas.
func drawBox(canvas *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(canvas, x, y1+t, c)
			setPixel(canvas, x, y2-t, c)
		}
		for y := y1; y <= y2; y++ {
			setPixel(canvas, x1+t, y, c)
			setPixel(canvas, x2-t, y, c)
		}
	}
}

func setPixel(canvas *image.NRGBA, x, y int, c color.NRGBA) {
	if (image.Point{X: x, Y: y}).In(canvas.Bounds()) {
		canvas.SetNRGBA(x, y, c)
	}
}

// drawLabel paints a filled strip with the label text directly above the
// box's top edge. Naive placement goes negative for boxes touching the top
// of the image, so the strip is clamped into the canvas instead of being
// clipped away.
func drawLabel(canvas *image.NRGBA, x, y int, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	width := canvas.Bounds().Dx()
	bgW := textWidth + 4
	bgH := textHeight + 4

	bgX := x
	if bgX < 0 {
		bgX = 0
	}
	if bgX+bgW > width {
		bgX = width - bgW
		if bgX < 0 {
			bgX = 0
		}
	}
	bgY := y - bgH
	if bgY < 0 {
		bgY = 0
	}

	for dy := 0; dy < bgH; dy++ {
		for dx := 0; dx < bgW; dx++ {
			blendPixel(canvas, bgX+dx, bgY+dy, c, labelAlpha)
		}
	}

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot:  fixed.P(bgX+2, bgY+2+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(text)
}
