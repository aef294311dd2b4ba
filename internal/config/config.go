// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/telescope-vision/prediction-api/internal/detect"
)

// Config holds everything the process needs to wire itself up. Built once
// at startup and read-only afterwards.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string

	// Detectors is the ordered list of model names to register. Order
	// defines prediction ordering.
	Detectors []string

	// ConfThreshold is the confidence threshold every detector runs at.
	ConfThreshold float64

	// DetectorTimeout bounds each detector invocation per request.
	DetectorTimeout time.Duration

	// FailurePolicy is the isolate/abort choice for detector failures.
	FailurePolicy detect.FailurePolicy

	// InferenceURL is the base URL of the external inference service.
	// Empty selects the stub backend (local development).
	InferenceURL string

	// ONNXModelDir, when set, selects in-process inference: each detector
	// name resolves to <dir>/<name>.onnx with a <name>.classes.json class
	// table alongside. Requires a binary built with the "onnx" tag.
	ONNXModelDir string

	// ONNXLibraryPath points at the onnxruntime shared library; empty
	// uses the runtime's default lookup.
	ONNXLibraryPath string

	// ClassificationTag is the default pass-through tag stamped onto
	// results when the request does not supply one.
	ClassificationTag string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present; its absence is not an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              envOr("PORT", "8000"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		InferenceURL:      os.Getenv("INFERENCE_URL"),
		ONNXModelDir:      os.Getenv("ONNX_MODEL_DIR"),
		ONNXLibraryPath:   os.Getenv("ONNX_LIBRARY_PATH"),
		ClassificationTag: os.Getenv("CLASSIFICATION_TAG"),
	}

	if raw := os.Getenv("DETECTORS"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.Detectors = append(cfg.Detectors, name)
			}
		}
	}
	if len(cfg.Detectors) == 0 {
		return nil, fmt.Errorf("DETECTORS must list at least one model name")
	}

	threshold := envOr("CONF_THRESHOLD", "0.5")
	v, err := strconv.ParseFloat(threshold, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CONF_THRESHOLD %q: %w", threshold, err)
	}
	if v < 0 || v > 1 {
		return nil, fmt.Errorf("CONF_THRESHOLD %g outside [0,1]", v)
	}
	cfg.ConfThreshold = v

	timeout := envOr("DETECTOR_TIMEOUT", "30s")
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid DETECTOR_TIMEOUT %q: %w", timeout, err)
	}
	if d < 0 {
		return nil, fmt.Errorf("DETECTOR_TIMEOUT must not be negative")
	}
	cfg.DetectorTimeout = d

	policy, err := detect.ParseFailurePolicy(os.Getenv("FAILURE_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAILURE_POLICY: %w", err)
	}
	cfg.FailurePolicy = policy

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
