package emotion

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/emotion-service/internal/inference"
	"github.com/SyedDaiam9101/emotion-service/internal/logging"
	"github.com/SyedDaiam9101/emotion-service/internal/metrics"
	"github.com/SyedDaiam9101/emotion-service/internal/middleware"
	"github.com/SyedDaiam9101/emotion-service/internal/preprocess"
)

const tracerName = "github.com/SyedDaiam9101/emotion-service/internal/emotion"

// Cache stores previously computed labels keyed by image digest.
type Cache interface {
	GetLabel(ctx context.Context, key string) (label string, found bool, err error)
	SetLabel(ctx context.Context, key, label string) error
}

// Predictor runs the full bytes-to-label pipeline against a loaded model.
type Predictor struct {
	model  inference.Model
	cache  Cache
	logger *zap.Logger
	tracer trace.Tracer
	width  uint
	height uint
}

// Option customizes a Predictor.
type Option func(*Predictor)

// WithCache enables label caching.
func WithCache(c Cache) Option {
	return func(p *Predictor) { p.cache = c }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// WithInputSize overrides the tensor resolution.
func WithInputSize(width, height uint) Option {
	return func(p *Predictor) {
		p.width = width
		p.height = height
	}
}

// NewPredictor creates a Predictor. A nil model is allowed; every Predict
// call then fails with ErrModelNotLoaded.
func NewPredictor(model inference.Model, opts ...Option) *Predictor {
	p := &Predictor{
		model:  model,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		width:  preprocess.DefaultWidth,
		height: preprocess.DefaultHeight,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("predictor")
	return p
}

// Ready reports whether a model is loaded.
func (p *Predictor) Ready() bool {
	return inference.IsLoaded(p.model)
}

// Predict decodes faceBytes and returns the detected emotion.
func (p *Predictor) Predict(ctx context.Context, faceBytes []byte) (Label, error) {
	start := time.Now()
	requestID := middleware.GetRequestID(ctx)
	log := logging.WithOperation(p.logger, "emotion.predict", requestID)

	ctx, span := p.tracer.Start(ctx, "emotion.Predict",
		trace.WithAttributes(attribute.Int("emotion.input_bytes", len(faceBytes))))
	defer span.End()

	label, cached, err := p.predict(ctx, faceBytes, log)
	if err != nil {
		code := CodeOf(err)
		metrics.RecordError(string(code))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		log.Warn("prediction failed", zap.String("code", string(code)), zap.Error(err))
		return "", err
	}

	metrics.RecordPrediction(string(label))
	span.SetAttributes(attribute.String("emotion.label", string(label)), attribute.Bool("emotion.cached", cached))
	log.Info("prediction complete",
		zap.String("label", string(label)),
		zap.Bool("cached", cached),
		zap.Duration("elapsed", time.Since(start)))

	return label, nil
}

func (p *Predictor) predict(ctx context.Context, faceBytes []byte, log *zap.Logger) (Label, bool, error) {
	if faceBytes == nil {
		return "", false, ErrInvalidArguments
	}
	if !inference.IsLoaded(p.model) {
		return "", false, ErrModelNotLoaded
	}

	key := CacheKey(faceBytes)
	if p.cache != nil {
		label, found, err := p.cache.GetLabel(ctx, key)
		if err != nil {
			log.Warn("cache lookup failed", zap.Error(err))
		}
		metrics.RecordCacheLookup(found)
		if found {
			return Label(label), true, nil
		}
	}

	_, prepSpan := p.tracer.Start(ctx, "emotion.Prepare")
	prepStart := time.Now()
	tensor, err := preprocess.Prepare(faceBytes, p.width, p.height)
	metrics.RecordPreprocessLatency(time.Since(prepStart).Seconds())
	prepSpan.End()
	if err != nil {
		return "", false, err
	}

	_, inferSpan := p.tracer.Start(ctx, "emotion.Classify")
	inferStart := time.Now()
	label, err := Classify(tensor, p.model)
	metrics.RecordInferenceLatency(time.Since(inferStart).Seconds())
	inferSpan.End()
	if err != nil {
		return "", false, err
	}

	if p.cache != nil {
		if err := p.cache.SetLabel(ctx, key, string(label)); err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}

	return label, false, nil
}

// CacheKey derives the cache key for an image from its SHA-1 digest.
func CacheKey(faceBytes []byte) string {
	sum := sha1.Sum(faceBytes)
	return "emotion:" + hex.EncodeToString(sum[:])
}
