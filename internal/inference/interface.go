// internal/inference/interface.go
package inference

// Model defines the classifier capability consumed by the dispatcher.
// This abstraction allows for easy mocking in tests and swapping runtimes.
type Model interface {
	// Infer runs a single input tensor and returns the raw score vector.
	// input: flattened tensor data in NCHW order
	// shape: tensor dimensions, e.g. [1, 3, 224, 224]
	Infer(input []float32, shape []int64) ([]float32, error)

	// Close releases any resources held by the model.
	Close() error
}

// IsLoaded reports whether m can serve Infer calls. Models that track their
// own lifecycle expose it through a Loaded method; a nil interface, a typed
// nil or a closed session is not loaded.
func IsLoaded(m Model) bool {
	if m == nil {
		return false
	}
	if l, ok := m.(interface{ Loaded() bool }); ok {
		return l.Loaded()
	}
	return true
}
