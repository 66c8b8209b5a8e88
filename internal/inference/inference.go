// internal/inference/inference.go
package inference

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Default tensor names of the exported emotion classifier.
const (
	DefaultInputName  = "x_1"
	DefaultOutputName = "linear_72"
	DefaultNumClasses = 7
)

// ErrSessionClosed is returned by Infer after Close.
var ErrSessionClosed = errors.New("inference session is nil")

// Options configures how an ONNX model is loaded.
type Options struct {
	// SharedLibrary is the path to the onnxruntime shared library.
	// Empty uses the runtime's platform default.
	SharedLibrary string
	InputName     string
	OutputName    string
	NumClasses    int64
	// IntraOpThreads limits per-session parallelism; 0 keeps the runtime default.
	IntraOpThreads int
}

func (o *Options) withDefaults() {
	if o.InputName == "" {
		o.InputName = DefaultInputName
	}
	if o.OutputName == "" {
		o.OutputName = DefaultOutputName
	}
	if o.NumClasses <= 0 {
		o.NumClasses = DefaultNumClasses
	}
}

// ONNX wraps an ONNX runtime session. The session is created once and only
// read afterwards, so Infer may be called concurrently.
// It implements the Model interface.
type ONNX struct {
	mu         sync.RWMutex
	session    *ort.DynamicAdvancedSession
	numClasses int64
}

// New creates a new ONNX model by loading the file at modelPath
func New(modelPath string, opts Options) (*ONNX, error) {
	opts.withDefaults()

	if opts.SharedLibrary != "" {
		ort.SetSharedLibraryPath(opts.SharedLibrary)
	}

	// Initialize the ONNX runtime environment
	ownsEnv := false
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		ownsEnv = true
	}
	releaseEnv := func() {
		if ownsEnv {
			ort.DestroyEnvironment()
		}
	}

	var sessionOpts *ort.SessionOptions
	if opts.IntraOpThreads > 0 {
		so, err := ort.NewSessionOptions()
		if err != nil {
			releaseEnv()
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer so.Destroy()
		if err := so.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			releaseEnv()
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
		sessionOpts = so
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		sessionOpts,
	)
	if err != nil {
		releaseEnv()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNX{
		session:    session,
		numClasses: opts.NumClasses,
	}, nil
}

// Loaded reports whether the session is open. It is safe on a nil receiver.
func (m *ONNX) Loaded() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Infer runs the model on a single input tensor and returns its scores.
func (m *ONNX) Infer(input []float32, shape []int64) ([]float32, error) {
	if m == nil {
		return nil, ErrSessionClosed
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil, ErrSessionClosed
	}

	size := int64(1)
	for _, d := range shape {
		size *= d
	}
	if int64(len(input)) != size {
		return nil, fmt.Errorf("input has wrong size: got %d, expected %d", len(input), size)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, m.numClasses))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	err = m.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	// The tensor memory is released on return, so hand back a copy.
	scores := make([]float32, m.numClasses)
	copy(scores, outputTensor.GetData())
	return scores, nil
}

// Close releases the ONNX session resources
func (m *ONNX) Close() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		err := m.session.Destroy()
		m.session = nil
		if err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}

	return ort.DestroyEnvironment()
}

// Ensure ONNX implements Model at compile time
var _ Model = (*ONNX)(nil)
