// Package httpapi exposes the emotion pipeline over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/emotion-service/internal/emotion"
	"github.com/SyedDaiam9101/emotion-service/internal/logging"
	"github.com/SyedDaiam9101/emotion-service/internal/middleware"
)

// MaxUploadSize bounds request bodies and multipart uploads.
const MaxUploadSize = 10 << 20

// Predictor is the pipeline the routes delegate to.
type Predictor interface {
	Predict(ctx context.Context, faceBytes []byte) (emotion.Label, error)
}

// HealthFunc reports whether the service should receive traffic.
type HealthFunc func(ctx context.Context) bool

// EmotionRequest mirrors the gRPC request: face bytes, base64 in JSON.
type EmotionRequest struct {
	FaceBytes []byte `json:"faceBytes"`
}

// EmotionResponse carries the detected label.
type EmotionResponse struct {
	Emotion string `json:"emotion"`
}

// ErrorResponse carries a stable code and a readable message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(predictor Predictor, healthy HealthFunc, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = MaxUploadSize
	router.Use(gin.Recovery(), middleware.GinRequestID(), middleware.GinMetrics())
	RegisterRoutes(router, predictor, healthy, logger)
	return router
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, predictor Predictor, healthy HealthFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	healthCheck := func(okBody, failBody string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if healthy != nil && !healthy(c.Request.Context()) {
				c.String(http.StatusServiceUnavailable, failBody)
				return
			}
			c.String(http.StatusOK, okBody)
		}
	}
	router.GET("/healthz", healthCheck("OK", "Service Unavailable"))
	router.GET("/readyz", healthCheck("Ready", "Not Ready"))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/v1/emotion", func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logging.WithOperation(logger, "http.emotion", middleware.GetRequestID(ctx))

		if predictor == nil {
			writeError(c, emotion.ErrModelNotLoaded)
			return
		}

		faceBytes, err := readFaceBytes(c)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
					Code:    string(emotion.CodeInvalidArguments),
					Message: "upload exceeds size limit",
				})
				return
			}
			log.Debug("invalid request", zap.Error(err))
			writeError(c, err)
			return
		}

		label, err := predictor.Predict(ctx, faceBytes)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, EmotionResponse{Emotion: string(label)})
	})
}

// readFaceBytes accepts either a JSON body or a multipart "image" field.
// A missing field yields nil so the predictor reports INVALID_ARGUMENTS.
func readFaceBytes(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("image")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, err
			}
			return nil, emotion.ErrInvalidArguments
		}
		src, err := file.Open()
		if err != nil {
			return nil, emotion.ErrInvalidArguments
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return nil, emotion.ErrInvalidArguments
		}
		return data, nil
	}

	var req EmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, emotion.ErrInvalidArguments
	}
	return req.FaceBytes, nil
}

func httpStatus(code emotion.Code) int {
	switch code {
	case emotion.CodeInvalidArguments, emotion.CodeInvalidImage:
		return http.StatusBadRequest
	case emotion.CodeModelNotLoaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := emotion.CodeOf(err)
	c.JSON(httpStatus(code), ErrorResponse{
		Code:    string(code),
		Message: code.Message(),
	})
}
