package emotion

import (
	"errors"

	"github.com/SyedDaiam9101/emotion-service/internal/preprocess"
)

// Code is the stable identifier reported to clients for a failure.
type Code string

const (
	CodeOK               Code = ""
	CodeInvalidArguments Code = "INVALID_ARGUMENTS"
	CodeModelNotLoaded   Code = "MODEL_NOT_LOADED"
	CodeInvalidImage     Code = "INVALID_IMAGE"
	CodeMultiArray       Code = "MULTIARRAY_ERROR"
	CodePrediction       Code = "PREDICTION_ERROR"
)

var (
	ErrInvalidArguments = errors.New("face bytes are missing or invalid")
	ErrModelNotLoaded   = errors.New("emotion model is not loaded")
	ErrInference        = errors.New("error during prediction")

	// Re-exported so callers only need this package to classify failures.
	ErrDecode     = preprocess.ErrDecode
	ErrAllocation = preprocess.ErrAllocation
)

// CodeOf maps an error from this package (or one wrapping it) to its Code.
// Unrecognized errors are reported as prediction failures.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidArguments):
		return CodeInvalidArguments
	case errors.Is(err, ErrModelNotLoaded):
		return CodeModelNotLoaded
	case errors.Is(err, ErrDecode):
		return CodeInvalidImage
	case errors.Is(err, ErrAllocation):
		return CodeMultiArray
	default:
		return CodePrediction
	}
}

// Message returns the human-readable text paired with a code.
func (c Code) Message() string {
	switch c {
	case CodeInvalidArguments:
		return "Face bytes are missing or invalid"
	case CodeModelNotLoaded:
		return "Emotion model is not loaded"
	case CodeInvalidImage:
		return "Unable to decode face bytes as an image"
	case CodeMultiArray:
		return "Unable to convert image to tensor"
	case CodePrediction:
		return "Error during prediction"
	}
	return ""
}
