package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/telescope-vision/prediction-api/internal/imaging"
)

// RemoteDetector invokes one model hosted by an external inference service
// over HTTP. The service exposes, per model:
//
//	GET  {base}/models/{name}/classes   -> {"classes": [...]}
//	POST {base}/models/{name}/predict   -> prediction payload (below)
//
// The predict call uploads the image as multipart form field "file" with
// the confidence threshold in form field "threshold", and receives parallel
// arrays the adapter validates and converts into RawDetections.
type RemoteDetector struct {
	name    string
	baseURL string
	classes []string
	client  *http.Client
}

// remoteMask carries one mask grid in the service's wire shape.
type remoteMask struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"data"`
}

// remotePrediction is the inference service's response payload. Masks may
// be absent for detection-only models; when present the array lengths must
// all agree.
type remotePrediction struct {
	Boxes       [][4]float64 `json:"boxes"`
	Classes     []int        `json:"classes"`
	Confidences []float64    `json:"confidences"`
	Masks       []remoteMask `json:"masks,omitempty"`
}

// NewRemote constructs an adapter for the named model and fetches its class
// table from the inference service. The fetch happens once here so request
// handling never depends on a second service round trip.
func NewRemote(ctx context.Context, name, baseURL string, client *http.Client) (*RemoteDetector, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	d := &RemoteDetector{name: name, baseURL: baseURL, client: client}

	classes, err := d.fetchClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load classes for %s: %w", name, err)
	}
	d.classes = classes
	return d, nil
}

// Name returns the model name this adapter was configured with.
func (d *RemoteDetector) Name() string { return d.name }

// Classes returns the class table fetched at construction.
func (d *RemoteDetector) Classes() []string { return d.classes }

func (d *RemoteDetector) fetchClasses(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/models/%s/classes", d.baseURL, d.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("class fetch failed with status: %d", resp.StatusCode)
	}

	var payload struct {
		Classes []string `json:"classes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Classes) == 0 {
		return nil, fmt.Errorf("service returned empty class table")
	}
	return payload.Classes, nil
}

// Detect runs remote inference on img at the given confidence threshold.
//
// The image is re-encoded as PNG for upload; the decoded image itself is
// never mutated. Mismatched array lengths in the response surface as
// *MalformedOutputError.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]RawDetection, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image for upload: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("threshold", fmt.Sprintf("%g", threshold)); err != nil {
		return nil, fmt.Errorf("write threshold field: %w", err)
	}
	writer.Close()

	url := fmt.Sprintf("%s/models/%s/predict", d.baseURL, d.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var payload remotePrediction
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return d.convert(payload)
}

// convert validates the parallel arrays and builds RawDetections in the
// service's emission order.
func (d *RemoteDetector) convert(payload remotePrediction) ([]RawDetection, error) {
	if err := checkArity(d.name, len(payload.Boxes), len(payload.Classes), len(payload.Confidences), len(payload.Masks)); err != nil {
		return nil, err
	}

	detections := make([]RawDetection, 0, len(payload.Boxes))
	for i, box := range payload.Boxes {
		det := RawDetection{
			Box:        box,
			ClassIndex: payload.Classes[i],
			Confidence: payload.Confidences[i],
		}
		if len(payload.Masks) > 0 {
			m := payload.Masks[i]
			mask, err := imaging.NewMask(m.Width, m.Height, m.Data)
			if err != nil {
				return nil, &MalformedOutputError{Detector: d.name, Detail: err.Error()}
			}
			det.Mask = mask
		}
		detections = append(detections, det)
	}
	return detections, nil
}
