// internal/handler/handler.go
package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SyedDaiam9101/emotion-service/internal/emotion"
	"github.com/SyedDaiam9101/emotion-service/internal/logging"
	"github.com/SyedDaiam9101/emotion-service/internal/middleware"
)

// Predictor is the pipeline the handler delegates to.
type Predictor interface {
	Predict(ctx context.Context, faceBytes []byte) (emotion.Label, error)
}

// Handler implements the EmotionServer interface.
type Handler struct {
	predictor Predictor
	logger    *zap.Logger
}

// New creates a new Handler. A nil predictor makes every call report
// MODEL_NOT_LOADED.
func New(predictor Predictor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		predictor: predictor,
		logger:    logger.Named("grpc"),
	}
}

// GetEmotion classifies the face image carried in req.
func (h *Handler) GetEmotion(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	log := logging.WithOperation(h.logger, "grpc.get_emotion", requestID)

	if req == nil {
		return nil, grpcError(emotion.ErrInvalidArguments)
	}

	if h.predictor == nil {
		return nil, grpcError(emotion.ErrModelNotLoaded)
	}

	// Protobuf cannot distinguish unset bytes from empty ones; treat both
	// as an image that failed to decode.
	faceBytes := req.GetValue()
	if faceBytes == nil {
		faceBytes = []byte{}
	}

	label, err := h.predictor.Predict(ctx, faceBytes)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return nil, grpcError(err)
	}

	return wrapperspb.String(string(label)), nil
}

var _ EmotionServer = (*Handler)(nil)
