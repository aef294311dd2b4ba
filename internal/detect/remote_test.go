package detect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newInferenceServer stands up a fake inference service serving one model
// named "valves" with a fixed class table and a canned predict payload.
func newInferenceServer(t *testing.T, predict remotePrediction) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/models/valves/classes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]string{
			"classes": {"valve_left", "valve_right"},
		})
	})
	mux.HandleFunc("/models/valves/predict", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if r.FormValue("threshold") == "" {
			http.Error(w, "missing threshold", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(predict)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRemote_FetchesClasses(t *testing.T) {
	srv := newInferenceServer(t, remotePrediction{})

	d, err := NewRemote(context.Background(), "valves", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}
	if d.Name() != "valves" {
		t.Errorf("Name() = %q, want valves", d.Name())
	}
	classes := d.Classes()
	if len(classes) != 2 || classes[0] != "valve_left" || classes[1] != "valve_right" {
		t.Errorf("unexpected class table %v", classes)
	}
}

func TestNewRemote_UnknownModel(t *testing.T) {
	srv := newInferenceServer(t, remotePrediction{})

	if _, err := NewRemote(context.Background(), "missing", srv.URL, srv.Client()); err == nil {
		t.Error("expected error for model the service does not know")
	}
}

func TestRemoteDetect(t *testing.T) {
	srv := newInferenceServer(t, remotePrediction{
		Boxes:       [][4]float64{{10, 10, 50, 50}},
		Classes:     []int{1},
		Confidences: []float64{0.87},
		Masks: []remoteMask{
			{Width: 2, Height: 2, Data: []float32{0, 1, 1, 0}},
		},
	})

	d, err := NewRemote(context.Background(), "valves", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewRemote failed: %v", err)
	}

	dets, err := d.Detect(context.Background(), testImage(), 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	det := dets[0]
	if det.Box != [4]float64{10, 10, 50, 50} {
		t.Errorf("box = %v", det.Box)
	}
	if det.ClassIndex != 1 || det.Confidence != 0.87 {
		t.Errorf("class/confidence = %d/%v", det.ClassIndex, det.Confidence)
	}
	if det.Mask == nil {
		t.Fatal("expected a mask")
	}
	if det.Mask.At(1, 0) != 1 || det.Mask.At(0, 0) != 0 {
		t.Error("mask decoded with wrong orientation")
	}
}

func TestRemoteDetect_DetectionOnlyModel(t *testing.T) {
	srv := newInferenceServer(t, remotePrediction{
		Boxes:       [][4]float64{{1, 2, 3, 4}},
		Classes:     []int{0},
		Confidences: []float64{0.6},
	})

	d, err := NewRemote(context.Background(), "valves", srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	dets, err := d.Detect(context.Background(), testImage(), 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 1 || dets[0].Mask != nil {
		t.Errorf("expected one maskless detection, got %v", dets)
	}
}

func TestRemoteDetect_MismatchedArrays(t *testing.T) {
	srv := newInferenceServer(t, remotePrediction{
		Boxes:       [][4]float64{{1, 2, 3, 4}, {5, 6, 7, 8}},
		Classes:     []int{0},
		Confidences: []float64{0.6, 0.7},
	})

	d, err := NewRemote(context.Background(), "valves", srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.Detect(context.Background(), testImage(), 0.5)
	var malformed *MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedOutputError, got %v", err)
	}
	if malformed.Detector != "valves" {
		t.Errorf("error names %q, want valves", malformed.Detector)
	}
}

func TestRemoteDetect_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/valves/classes" {
			json.NewEncoder(w).Encode(map[string][]string{"classes": {"x"}})
			return
		}
		http.Error(w, "gpu on fire", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, err := NewRemote(context.Background(), "valves", srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Detect(context.Background(), testImage(), 0.5); err == nil {
		t.Error("expected error from failing inference call")
	}
}
