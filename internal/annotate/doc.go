// Package annotate renders detector output back onto the source image for
// visual inspection: semi-transparent mask overlays in a per-detector
// color, bounding-box outlines, and confidence labels.
//
// Compositing order is fixed: every detector's masks first, back to front
// in registration order, then all box and label overlays on top. Colors
// cycle through a small fixed palette by registration rank, so the same
// configuration always paints the same detector in the same color. Output
// is PNG to keep the overlays free of compression artifacts.
package annotate
