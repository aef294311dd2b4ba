package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/telescope-vision/prediction-api/internal/config"
	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("prediction-api %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("prediction-api - multi-model detection aggregation service")
			fmt.Println()
			fmt.Println("Usage: prediction-api [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PORT                 Listen port (default 8000)")
			fmt.Println("  LOG_LEVEL            Log level (default info)")
			fmt.Println("  DETECTORS            Ordered comma-separated model names (required)")
			fmt.Println("  CONF_THRESHOLD       Confidence threshold in [0,1] (default 0.5)")
			fmt.Println("  DETECTOR_TIMEOUT     Per-detector timeout (default 30s)")
			fmt.Println("  FAILURE_POLICY       isolate or abort (default isolate)")
			fmt.Println("  INFERENCE_URL        External inference service base URL")
			fmt.Println("  ONNX_MODEL_DIR       Directory of <name>.onnx models (onnx builds)")
			fmt.Println("  CLASSIFICATION_TAG   Default pass-through tag on results")
			return
		}
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("unknown LOG_LEVEL %q, staying on info", cfg.LogLevel)
	}

	log.Infof("prediction-api %s (built %s, commit %s)", Version, BuildTime, GitCommit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := buildRegistry(ctx, cfg, log)
	if err != nil {
		log.Fatalf("registry: %v", err)
	}
	log.WithField("models", registry.Names()).Info("detectors registered")

	srv := server.New(":"+cfg.Port, registry, server.Defaults{
		DetectorTimeout:   cfg.DetectorTimeout,
		FailurePolicy:     cfg.FailurePolicy,
		ClassificationTag: cfg.ClassificationTag,
	}, log)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildRegistry constructs the immutable detector set in configured order.
// Backend selection per detector: the reserved name "text" is OCR-backed,
// an ONNX model directory selects in-process inference, an inference URL
// selects the remote adapter, and with neither configured the detector is
// a stub that finds nothing (local development).
func buildRegistry(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*detect.Registry, error) {
	if cfg.ONNXModelDir != "" {
		if err := detect.InitONNXRuntime(cfg.ONNXLibraryPath); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	registry := detect.NewRegistry()
	client := &http.Client{}

	for _, name := range cfg.Detectors {
		var (
			detector detect.Detector
			err      error
		)
		switch {
		case name == "text":
			detector = detect.NewTesseractDetector(name)
		case cfg.ONNXModelDir != "":
			classes, cerr := loadClassTable(filepath.Join(cfg.ONNXModelDir, name+".classes.json"))
			if cerr != nil {
				return nil, fmt.Errorf("classes for %s: %w", name, cerr)
			}
			detector = detect.NewONNXDetector(name, filepath.Join(cfg.ONNXModelDir, name+".onnx"), classes)
		case cfg.InferenceURL != "":
			detector, err = detect.NewRemote(ctx, name, cfg.InferenceURL, client)
			if err != nil {
				return nil, err
			}
		default:
			log.Warnf("no inference backend configured; %s registered as a stub", name)
			detector = detect.NewStub(name, []string{"object"}, nil)
		}

		if err := registry.Register(detector, cfg.ConfThreshold); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// loadClassTable reads a JSON array of class names.
func loadClassTable(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%s lists no classes", path)
	}
	return classes, nil
}
