package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/telescope-vision/prediction-api/internal/detect"
)

// clearEnv blanks every variable Load reads so ambient shell state cannot
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DETECTORS", "CONF_THRESHOLD",
		"DETECTOR_TIMEOUT", "FAILURE_POLICY", "INFERENCE_URL",
		"ONNX_MODEL_DIR", "ONNX_LIBRARY_PATH", "CLASSIFICATION_TAG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DETECTORS", "valves")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, []string{"valves"}, cfg.Detectors)
	require.Equal(t, 0.5, cfg.ConfThreshold)
	require.Equal(t, 30*time.Second, cfg.DetectorTimeout)
	require.Equal(t, detect.FailurePolicyIsolate, cfg.FailurePolicy)
	require.Empty(t, cfg.InferenceURL)
	require.Empty(t, cfg.ClassificationTag)
}

func TestLoad_FullEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9001")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DETECTORS", "valves, pumps ,gauges")
	t.Setenv("CONF_THRESHOLD", "0.25")
	t.Setenv("DETECTOR_TIMEOUT", "5s")
	t.Setenv("FAILURE_POLICY", "abort")
	t.Setenv("INFERENCE_URL", "http://inference:8080")
	t.Setenv("CLASSIFICATION_TAG", "line-3")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9001", cfg.Port)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, []string{"valves", "pumps", "gauges"}, cfg.Detectors)
	require.Equal(t, 0.25, cfg.ConfThreshold)
	require.Equal(t, 5*time.Second, cfg.DetectorTimeout)
	require.Equal(t, detect.FailurePolicyAbort, cfg.FailurePolicy)
	require.Equal(t, "http://inference:8080", cfg.InferenceURL)
	require.Equal(t, "line-3", cfg.ClassificationTag)
}

func TestLoad_MissingDetectors(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.ErrorContains(t, err, "DETECTORS")
}

func TestLoad_InvalidThreshold(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"negative", "-0.1"},
		{"above one", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DETECTORS", "valves")
			t.Setenv("CONF_THRESHOLD", tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("DETECTORS", "valves")
	t.Setenv("DETECTOR_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "DETECTOR_TIMEOUT")
}

func TestLoad_InvalidFailurePolicy(t *testing.T) {
	clearEnv(t)
	t.Setenv("DETECTORS", "valves")
	t.Setenv("FAILURE_POLICY", "retry")

	_, err := Load()
	require.ErrorContains(t, err, "FAILURE_POLICY")
}
