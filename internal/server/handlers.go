package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/telescope-vision/prediction-api/internal/annotate"
	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/imaging"
	"github.com/telescope-vision/prediction-api/internal/predict"
)

// maxUploadBytes bounds multipart parsing memory.
const maxUploadBytes = 50 << 20

// base64Request is the JSON upload shape: one base64-encoded image with an
// optional name and tag.
type base64Request struct {
	ImageBase64       string `json:"image_base64"`
	ImageName         string `json:"image_name"`
	ClassificationTag string `json:"classification_tag,omitempty"`
}

// handleHealth reports liveness and the registered model names.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"models": s.registry.Names(),
	})
}

// handleProcess runs the aggregation pipeline over every uploaded image
// and responds with an array of per-image results. A single undecodable
// upload fails the whole request with 400 naming the file.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uploads, tag, err := readUploads(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := predict.Options{
		Timeout:           s.defaults.DetectorTimeout,
		FailurePolicy:     s.defaults.FailurePolicy,
		ClassificationTag: s.defaults.ClassificationTag,
	}
	if tag != "" {
		opts.ClassificationTag = tag
	}

	results := make([]*predict.ImageResult, 0, len(uploads))
	for _, up := range uploads {
		result, err := s.pipeline.Process(r.Context(), up.data, up.name, opts)
		if err != nil {
			s.respondPipelineError(w, err)
			return
		}
		results = append(results, result)
	}

	respondJSON(w, http.StatusOK, results)
}

// handleAnnotate renders overlays for one uploaded image. Multipart
// requests get raw PNG back; JSON requests get base64.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uploads, _, err := readUploads(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(uploads) != 1 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("annotate expects exactly one image, got %d", len(uploads)))
		return
	}

	opts := annotate.Options{
		Timeout:       s.defaults.DetectorTimeout,
		FailurePolicy: s.defaults.FailurePolicy,
	}
	rendered, err := s.renderer.Render(r.Context(), uploads[0].data, uploads[0].name, opts)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	if isJSONRequest(r) {
		respondJSON(w, http.StatusOK, map[string]string{
			"annotated_base64": base64.StdEncoding.EncodeToString(rendered),
		})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered)
}

// upload is one image extracted from a request body.
type upload struct {
	name string
	data []byte
}

// readUploads extracts images from either a multipart form (field
// "images") or a base64 JSON body, plus any classification tag override.
func readUploads(r *http.Request) ([]upload, string, error) {
	if isJSONRequest(r) {
		var req base64Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, "", fmt.Errorf("invalid JSON body: %v", err)
		}
		if req.ImageBase64 == "" {
			return nil, "", errors.New("no image_base64 provided")
		}
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid image_base64: %v", err)
		}
		name := req.ImageName
		if name == "" {
			name = "image"
		}
		return []upload{{name: name, data: data}}, req.ClassificationTag, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("failed to parse form: %v", err)
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		return nil, "", errors.New("no images uploaded")
	}

	uploads := make([]upload, 0, len(files))
	for _, header := range files {
		data, err := readFile(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %v", header.Filename, err)
		}
		uploads = append(uploads, upload{name: header.Filename, data: data})
	}
	return uploads, r.FormValue("classification_tag"), nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// respondPipelineError maps pipeline errors onto HTTP statuses: bad input
// is the client's fault, a detector failure under the abort policy is a
// bad upstream, anything else is internal.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	var decodeErr *imaging.DecodeError
	if errors.As(err, &decodeErr) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid image: %s", decodeErr.ImageName))
		return
	}
	var detectorErr *detect.DetectorError
	if errors.As(err, &detectorErr) {
		respondError(w, http.StatusBadGateway, detectorErr.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
