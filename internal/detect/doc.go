// Package detect defines the detector capability boundary: the Detector
// interface every model backend implements, the raw detection record those
// backends normalize their output into, and the registry that owns the
// configured detector set for the lifetime of the process.
//
// # Backends
//
// Four adapters implement Detector:
//   - RemoteDetector: calls an external inference service over HTTP
//     (multipart image upload, JSON detections back). The default backend.
//   - StubDetector: canned detections for tests and local development.
//   - TesseractDetector: OCR word boxes as class "text" detections via
//     gosseract. Real backend requires the "tesseract" build tag (cgo);
//     without it the constructor produces a detector that fails at call
//     time, mirroring the build elsewhere in this codebase.
//   - ONNXDetector: in-process YOLO-style inference through onnxruntime,
//     behind the "onnx" build tag.
//
// # Output Contract
//
// Adapters are the tolerance boundary for differently-shaped model output.
// Whatever the backend returns, the adapter either produces RawDetections
// with consistent box/class/confidence/mask arity or fails with
// *MalformedOutputError. Nothing past this package deals with raw model
// shapes.
//
// # Concurrency
//
// Registered detectors are initialized once at startup and must be safe for
// concurrent read-only invocation; Registry.RunAll fans invocations out in
// parallel against a shared read-only image and no adapter may mutate it.
package detect
