// Package emotion classifies face images into a fixed set of emotions.
package emotion

import (
	"errors"
	"fmt"
	"math"

	"github.com/SyedDaiam9101/emotion-service/internal/inference"
	"github.com/SyedDaiam9101/emotion-service/internal/preprocess"
)

// Label is an emotion name from Labels, or Unknown.
type Label string

// Unknown is returned when no score can be mapped to a label.
const Unknown Label = "unknown"

// Labels is positionally matched to the model's output scores.
var Labels = []Label{"sad", "disgust", "angry", "neutral", "fear", "surprise", "happy"}

// ArgMax returns the index of the largest score, preferring the lowest index
// among equal maxima. NaN scores are ignored. It returns -1 when no score
// qualifies.
func ArgMax(scores []float32) int {
	best := -1
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			continue
		}
		if best < 0 || v > scores[best] {
			best = i
		}
	}
	return best
}

// LabelAt maps a score index to its label, or Unknown when out of range.
func LabelAt(index int) Label {
	if index < 0 || index >= len(Labels) {
		return Unknown
	}
	return Labels[index]
}

// Classify runs model on tensor and returns the best-scoring label.
func Classify(tensor *preprocess.Tensor, model inference.Model) (Label, error) {
	if !inference.IsLoaded(model) {
		return "", ErrModelNotLoaded
	}
	if tensor == nil {
		return "", fmt.Errorf("%w: nil tensor", ErrAllocation)
	}

	scores, err := model.Infer(tensor.Data, tensor.Dims())
	if errors.Is(err, inference.ErrSessionClosed) {
		return "", fmt.Errorf("%w: %v", ErrModelNotLoaded, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}

	return LabelAt(ArgMax(scores)), nil
}
