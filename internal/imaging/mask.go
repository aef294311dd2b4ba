package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/transform"
)

// Mask is a model-produced 2-D grid of membership values for one detected
// object. Values are conventionally in [0,1]; the grid resolution is the
// model's internal inference size, not necessarily the image size.
//
// A Mask is immutable after construction.
type Mask struct {
	width  int
	height int
	data   []float32
}

// NewMask wraps a row-major value grid as a Mask. The data slice must hold
// exactly width*height values.
func NewMask(width, height int, data []float32) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask size %dx%d", width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("mask data length %d does not match %dx%d", len(data), width, height)
	}
	return &Mask{width: width, height: height, data: data}, nil
}

// Width returns the mask grid width in cells.
func (m *Mask) Width() int { return m.width }

// Height returns the mask grid height in cells.
func (m *Mask) Height() int { return m.height }

// At returns the mask value at (x, y). No bounds checking is performed;
// caller must ensure coordinates are valid.
func (m *Mask) At(x, y int) float32 { return m.data[y*m.width+x] }

// gray renders the mask as an 8-bit grayscale image, clamping values to
// [0,1] and scaling to 0-255. This is the raster handed to the resampler.
func (m *Mask) gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			v := m.data[y*m.width+x]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.Pix[y*img.Stride+x] = uint8(v*255 + 0.5)
		}
	}
	return img
}

// Bitmap is a binary raster: true cells are foreground. It is the input to
// boundary tracing and to overlay painting.
type Bitmap struct {
	Width  int
	Height int
	bits   []bool
}

// NewBitmap returns an all-background bitmap of the given size.
func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{Width: width, Height: height, bits: make([]bool, width*height)}
}

// At reports whether (x, y) is foreground. Out-of-bounds coordinates are
// background.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || x >= b.Width || y < 0 || y >= b.Height {
		return false
	}
	return b.bits[y*b.Width+x]
}

// Set marks (x, y) as foreground. No bounds checking is performed.
func (b *Bitmap) Set(x, y int) { b.bits[y*b.Width+x] = true }

// Empty reports whether the bitmap has no foreground cell.
func (b *Bitmap) Empty() bool {
	for _, v := range b.bits {
		if v {
			return false
		}
	}
	return true
}

// BitmapAt resizes the mask to width x height and binarizes it.
//
// Resampling is nearest-neighbor, so resized cells carry values taken
// verbatim from the source grid and the resize cannot shift the
// binarization outcome. The threshold is the midpoint of the resized
// raster's value range; a flat mask is foreground wherever its value is
// nonzero, so an all-ones mask stays fully foreground and an all-zero mask
// stays empty.
func (m *Mask) BitmapAt(width, height int) *Bitmap {
	resized := transform.Resize(m.gray(), width, height, transform.NearestNeighbor)

	lo, hi := uint8(255), uint8(0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := resized.Pix[y*resized.Stride+x*4]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	bm := NewBitmap(width, height)
	if lo > hi {
		return bm
	}
	threshold := uint8((int(lo) + int(hi)) / 2)
	flat := lo == hi
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := resized.Pix[y*resized.Stride+x*4]
			if flat {
				if v > 0 {
					bm.Set(x, y)
				}
			} else if v > threshold {
				bm.Set(x, y)
			}
		}
	}
	return bm
}
