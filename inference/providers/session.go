// Package providers - Inference sessions.
package providers

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitEnvironment loads the ONNX Runtime shared library and initializes the
// environment. Only the first successful call has an effect; later calls
// return nil.
//
// Arguments:
//   - libPath: Path to the shared library. Paths with a directory component
//     must exist.
//
// Returns:
//   - error: An error if the library is missing or fails to initialize.
func InitEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if filepath.Base(libPath) != libPath {
		if _, err := os.Stat(libPath); err != nil {
			return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
		}
	}

	// Point ONNX Runtime to the exact shared library path (overrides default search).
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize onnxruntime environment")
	}
	return nil
}

// TensorInfo describes one model input or output.
type TensorInfo struct {
	Name  string
	Shape ort.Shape
}

// InspectModel reads the input and output names and shapes of an ONNX file.
// The environment must already be initialized.
func InspectModel(path string) (inputs, outputs []TensorInfo, err error) {
	in, out, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read model inputs and outputs")
	}
	for _, i := range in {
		inputs = append(inputs, TensorInfo{Name: i.Name, Shape: i.Dimensions})
	}
	for _, o := range out {
		outputs = append(outputs, TensorInfo{Name: o.Name, Shape: o.Dimensions})
	}
	return inputs, outputs, nil
}

// ResolveShape replaces a dynamic batch dimension with 1. Any other dynamic
// dimension is an error, since tensors are preallocated.
func ResolveShape(shape ort.Shape) (ort.Shape, error) {
	if len(shape) == 0 {
		return nil, errors.New("empty shape")
	}
	resolved := make([]int64, len(shape))
	for i, d := range shape {
		switch {
		case d > 0:
			resolved[i] = d
		case i == 0:
			resolved[i] = 1
		default:
			return nil, errors.Errorf("dynamic dimension %d in shape %v; export the model with a fixed image size", i, shape)
		}
	}
	return ort.NewShape(resolved...), nil
}

// Session represents a model session from the onnxruntime with one input
// and one output tensor.
type Session struct {
	Session    *ort.AdvancedSession
	Input      *ort.Tensor[float32]
	Output     *ort.Tensor[float32]
	InputInfo  TensorInfo
	OutputInfo TensorInfo
}

// Run executes the model on the current contents of the input tensor.
func (s *Session) Run() error {
	return s.Session.Run()
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	var firstErr error
	if s.Session != nil {
		if err := s.Session.Destroy(); err != nil {
			firstErr = errors.Wrap(err, "destroy session")
		}
		s.Session = nil
	}
	if s.Input != nil {
		if err := s.Input.Destroy(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "destroy input tensor")
		}
		s.Input = nil
	}
	if s.Output != nil {
		if err := s.Output.Destroy(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "destroy output tensor")
		}
		s.Output = nil
	}
	return firstErr
}

// NewSessionArgs represents the arguments for creating a new ONNX session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// LibraryPath overrides the platform default shared library.
	LibraryPath string
	// Optimization settings applied to the session options.
	Optimization OptimizationConfig
}

// NewSession creates a new ONNX session.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Model inspection: reads input/output names and shapes from the file.
//  3. Tensor allocation: fixed-shape buffers for the first input and output.
//  4. Session options and the execution provider.
//  5. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - provider: The provider for the session.
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session and its preallocated tensors. The caller closes it.
//   - error: An error if the session creation fails.
func NewSession(provider ExecutionProvider, args NewSessionArgs) (*Session, error) {
	libPath, err := GetSharedLibPath(args.LibraryPath)
	if err != nil {
		return nil, err
	}
	if err := InitEnvironment(libPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := InspectModel(args.ModelPath)
	if err != nil {
		return nil, err
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, errors.Errorf("expected one input and at least one output, got %d and %d",
			len(inputs), len(outputs))
	}

	s := &Session{InputInfo: inputs[0], OutputInfo: outputs[0]}

	inShape, err := ResolveShape(s.InputInfo.Shape)
	if err != nil {
		return nil, errors.Wrapf(err, "input %s", s.InputInfo.Name)
	}
	outShape, err := ResolveShape(s.OutputInfo.Shape)
	if err != nil {
		return nil, errors.Wrapf(err, "output %s", s.OutputInfo.Name)
	}
	s.InputInfo.Shape = inShape
	s.OutputInfo.Shape = outShape

	if s.Input, err = ort.NewEmptyTensor[float32](inShape); err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	if s.Output, err = ort.NewEmptyTensor[float32](outShape); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := OptimizedSessionOptions(args.Optimization, provider)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	s.Session, err = ort.NewAdvancedSession(
		args.ModelPath,
		[]string{s.InputInfo.Name},
		[]string{s.OutputInfo.Name},
		[]ort.Value{s.Input},
		[]ort.Value{s.Output},
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "create session")
	}

	return s, nil
}
