package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"go.uber.org/zap"
)

type stubPipeline struct {
	got    []byte
	result entity.PipelineResult
}

func (s *stubPipeline) Handle(_ context.Context, raw []byte) entity.PipelineResult {
	s.got = raw
	return s.result
}

func TestExtractionsReturnsPipelineResult(t *testing.T) {
	stub := &stubPipeline{result: entity.SuccessResult("u1@example.com", "https://store.local/signed")}
	srv := httptest.NewServer(NewHandler(stub, zap.NewNop()))
	defer srv.Close()

	body := `{"sourceId":"123","ownerId":"u1","notifyTarget":"u1@example.com","sampleIntervalSeconds":10}`
	resp, err := http.Post(srv.URL+"/extractions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, body, string(stub.got))

	var got entity.PipelineResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, stub.result, got)
}

func TestExtractionsPropagatesFailureStatus(t *testing.T) {
	stub := &stubPipeline{result: entity.FailureResult(entity.MissingFieldsError([]string{"ownerId"}))}
	srv := httptest.NewServer(NewHandler(stub, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/extractions", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.EqualValues(t, 400, got["statusCode"])
	assert.Equal(t, "missing required fields: ownerId", got["body"].(map[string]any)["message"])
}

func TestExtractionsRejectsGet(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&stubPipeline{}, zap.NewNop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/extractions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&stubPipeline{}, zap.NewNop()))
	defer srv.Close()

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
