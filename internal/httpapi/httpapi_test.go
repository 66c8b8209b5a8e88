package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/emotion-service/internal/emotion"
	"github.com/SyedDaiam9101/emotion-service/internal/inference"
	"github.com/SyedDaiam9101/emotion-service/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 20))))
	return buf.Bytes()
}

func jsonRequest(t *testing.T, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/emotion", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func newTestRouter(model inference.Model) *gin.Engine {
	return NewRouter(emotion.NewPredictor(model), func(context.Context) bool { return model != nil }, nil)
}

func TestEmotionJSON(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, EmotionRequest{FaceBytes: pngBytes(t)}))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out EmotionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "happy", out.Emotion)
	assert.NotEmpty(t, resp.Header().Get(middleware.RequestIDHeader))
}

func TestEmotionMultipart(t *testing.T) {
	router := newTestRouter(inference.NewMockWithScores([]float32{0, 0, 0.9, 0, 0, 0, 0}))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "face.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/emotion", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"angry"`)
}

func TestEmotionMultipartMissingField(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/emotion", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_ARGUMENTS", decodeError(t, resp).Code)
}

func TestEmotionMissingFaceBytes(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_ARGUMENTS", decodeError(t, resp).Code)
}

func TestEmotionMalformedJSON(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/v1/emotion", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_ARGUMENTS", decodeError(t, resp).Code)
}

func TestEmotionEmptyFaceBytes(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/v1/emotion", strings.NewReader(`{"faceBytes": ""}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_IMAGE", decodeError(t, resp).Code)
}

func TestEmotionModelNotLoaded(t *testing.T) {
	router := newTestRouter(nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, EmotionRequest{FaceBytes: pngBytes(t)}))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "MODEL_NOT_LOADED", decodeError(t, resp).Code)
}

func TestEmotionNilPredictor(t *testing.T) {
	router := NewRouter(nil, nil, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, EmotionRequest{FaceBytes: pngBytes(t)}))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "MODEL_NOT_LOADED", decodeError(t, resp).Code)
}

func TestEmotionPredictionError(t *testing.T) {
	mock := inference.NewMock()
	mock.SetError("boom")
	router := newTestRouter(mock)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, EmotionRequest{FaceBytes: pngBytes(t)}))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	errResp := decodeError(t, resp)
	assert.Equal(t, "PREDICTION_ERROR", errResp.Code)
	assert.NotContains(t, errResp.Message, "boom")
}

func TestEmotionRejectsLargeBody(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	big := `{"faceBytes": "` + strings.Repeat("A", MaxUploadSize+16) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/emotion", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ready := newTestRouter(inference.NewMock())
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := httptest.NewRecorder()
		ready.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}

	unready := newTestRouter(nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := httptest.NewRecorder()
		unready.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(inference.NewMock())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, jsonRequest(t, EmotionRequest{FaceBytes: pngBytes(t)}))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "emotion_predictions_total")
}
