// internal/inference/mock.go
package inference

import (
	"fmt"
	"sync"
)

// MockModel is a mock implementation of Model for testing.
// It returns deterministic scores without requiring the ONNX shared library.
type MockModel struct {
	mu sync.Mutex

	// Scores is the vector returned for every input
	Scores []float32
	// ShouldError if true, Infer will return an error
	ShouldError bool
	// ErrorMessage is the error message to return when ShouldError is true
	ErrorMessage string
	// CallCount tracks the number of times Infer was called
	CallCount int
	// LastShape records the shape passed to the most recent Infer call
	LastShape []int64
}

// NewMock creates a new MockModel whose highest score is "happy" (index 6)
func NewMock() *MockModel {
	return &MockModel{
		Scores: []float32{0.01, 0.02, 0.03, 0.10, 0.04, 0.20, 0.60},
	}
}

// NewMockWithScores creates a MockModel with a custom score vector
func NewMockWithScores(scores []float32) *MockModel {
	return &MockModel{Scores: scores}
}

// Infer validates the input size and returns a copy of Scores.
func (m *MockModel) Infer(input []float32, shape []int64) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastShape = append([]int64(nil), shape...)

	if m.ShouldError {
		if m.ErrorMessage != "" {
			return nil, fmt.Errorf("%s", m.ErrorMessage)
		}
		return nil, fmt.Errorf("mock inference error")
	}

	size := int64(1)
	for _, d := range shape {
		size *= d
	}
	if int64(len(input)) != size {
		return nil, fmt.Errorf("input has wrong size: got %d, expected %d", len(input), size)
	}

	out := make([]float32, len(m.Scores))
	copy(out, m.Scores)
	return out, nil
}

// Calls returns CallCount under the mock's lock.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Close is a no-op for the mock implementation
func (m *MockModel) Close() error {
	return nil
}

// SetError configures the mock to return an error on the next Infer call
func (m *MockModel) SetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldError = true
	m.ErrorMessage = msg
}

// ClearError clears any configured error
func (m *MockModel) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldError = false
	m.ErrorMessage = ""
}

// Ensure MockModel implements Model at compile time
var _ Model = (*MockModel)(nil)
