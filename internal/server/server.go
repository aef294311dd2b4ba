package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/telescope-vision/prediction-api/internal/annotate"
	"github.com/telescope-vision/prediction-api/internal/detect"
	"github.com/telescope-vision/prediction-api/internal/predict"
)

// Defaults applied to every request; set once from configuration.
type Defaults struct {
	// DetectorTimeout bounds each detector invocation.
	DetectorTimeout time.Duration

	// FailurePolicy is the configured isolate/abort choice.
	FailurePolicy detect.FailurePolicy

	// ClassificationTag is stamped onto results when the request does not
	// supply its own.
	ClassificationTag string
}

// Server is the HTTP transport. It owns no detector state; the registry,
// pipeline, and renderer are shared read-only across requests.
type Server struct {
	addr     string
	registry *detect.Registry
	pipeline *predict.Pipeline
	renderer *annotate.Renderer
	defaults Defaults
	log      *logrus.Logger
}

// New wires a server over an already-built registry.
func New(addr string, registry *detect.Registry, defaults Defaults, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		addr:     addr,
		registry: registry,
		pipeline: predict.NewPipeline(registry, log),
		renderer: annotate.NewRenderer(registry, log),
		defaults: defaults,
		log:      log,
	}
}

// Handler returns the routed HTTP handler, exported separately from Run so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/process", s.handleProcess)
	mux.HandleFunc("/annotate", s.handleAnnotate)
	return s.logged(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully with a
// short drain window.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.WithField("addr", s.addr).Info("server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// logged wraps the mux with request logging.
func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
