// Package imaging provides the raster-level operations behind the prediction
// pipeline: decoding request bytes into images, carrying model masks as float
// grids, resizing masks to image resolution, binarization, and boundary
// tracing of mask regions into polygons.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Determinism
//
// Every operation here is deterministic: identical mask bits produce
// identical polygons. Mask resizing uses nearest-neighbor resampling so no
// intermediate values are introduced before binarization, and boundary
// tracing always starts at the first foreground pixel in row-major scan
// order. The pipeline's reproducible-output guarantee depends on this.
//
// # Thread Safety
//
// Decoded images and Mask values are read-only after construction and safe
// to share across concurrent detector invocations.
package imaging
