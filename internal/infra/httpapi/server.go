package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"go.uber.org/zap"
)

// maxRequestBytes caps an inbound extraction request body.
const maxRequestBytes = 1 << 20

// Pipeline runs one extraction for a raw request body.
type Pipeline interface {
	Handle(ctx context.Context, raw []byte) entity.PipelineResult
}

// NewHandler routes the synchronous extraction endpoint next to the metrics
// and health endpoints.
func NewHandler(pipeline Pipeline, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/extractions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeResult(w, logger, entity.PipelineResult{
				StatusCode: http.StatusMethodNotAllowed,
				Body:       entity.ResultBody{Message: "method not allowed"},
			})
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			logger.Warn("failed to read request body", zap.Error(err))
			writeResult(w, logger, entity.FailureResult(
				entity.NewError(entity.KindMalformedRequest, "request body is missing or invalid", err)))
			return
		}

		writeResult(w, logger, pipeline.Handle(r.Context(), raw))
	})
	return mux
}

func writeResult(w http.ResponseWriter, logger *zap.Logger, result entity.PipelineResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.StatusCode)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}

// StartServer serves handler in the background. Requests inherit ctx, so a
// shutdown cancels in-flight synchronous runs.
func StartServer(ctx context.Context, port int, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("http server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	return srv
}
