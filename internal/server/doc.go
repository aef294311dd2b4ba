// Package server implements the HTTP transport in front of the prediction
// pipeline and the annotation renderer.
//
// # Endpoints
//
//   - GET  /health   — liveness plus the registered model names.
//   - POST /process  — run all detectors over one or more images, respond
//     with an array of per-image prediction records.
//   - POST /annotate — render mask/box/label overlays, respond with the
//     annotated image.
//
// Both POST endpoints accept either multipart form uploads (field
// "images") or a JSON body with a base64-encoded image, matching the two
// upload styles of the deployment environments this service runs in.
//
// # Error Mapping
//
// Undecodable input maps to 400 naming the offending image. Under the
// abort failure policy a detector failure maps to 502; everything else
// internal is 500. Under the isolate policy detector failures never fail
// the request; they appear in the result's failures list.
package server
