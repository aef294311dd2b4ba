// Package predict turns raw detector output into the canonical per-image
// prediction record and orchestrates the multi-model aggregation pipeline.
//
// The pipeline decodes request bytes once, fans invocations out across the
// registered detectors, normalizes every raw detection (integer boxes,
// class-name lookup, label decomposition, mask-to-polygon extraction,
// fresh identifier), and assembles one ImageResult.
//
// # Ordering
//
// Predictions are ordered by detector registration rank, then by the order
// the detector emitted them. The fan-out collects into rank-indexed slots,
// so concurrent completion order never shows in the output: two runs over
// identical input and identical model output produce identical results,
// identifiers aside.
//
// # Failure Policy
//
// Detector failures are isolated by default: the failing detector
// contributes zero predictions and a failure note on the result, letting
// callers tell "nothing detected" from "detector unavailable". The abort
// policy instead fails the whole request on the first failed detector in
// rank order. Undecodable input always fails the request before any
// detector runs.
package predict
