package annotate

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// paletteHex is the fixed overlay palette: red, green, blue, yellow,
// magenta, cyan. Detectors are assigned colors cycling by registration
// rank.
var paletteHex = []string{
	"#FF0000",
	"#00FF00",
	"#0000FF",
	"#FFFF00",
	"#FF00FF",
	"#00FFFF",
}

var palette = buildPalette()

func buildPalette() []color.NRGBA {
	out := make([]color.NRGBA, len(paletteHex))
	for i, hex := range paletteHex {
		c, err := colorful.Hex(hex)
		if err != nil {
			// The palette is a compile-time constant; a bad entry is a
			// programming error.
			panic(err)
		}
		r, g, b := c.RGB255()
		out[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// DetectorColor returns the overlay color for the detector at the given
// registration rank.
func DetectorColor(rank int) color.NRGBA {
	return palette[rank%len(palette)]
}
