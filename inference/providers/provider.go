// Package providers - ONNX Runtime execution providers and sessions.
package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend names the execution provider.
	Backend() ProviderBackend
	// Options returns the provider specific options.
	Options() ProviderOptions
	// Append registers the provider on a set of session options.
	Append(options *ort.SessionOptions) error
}

// Config selects and configures the execution provider for a session.
type Config struct {
	// Backend specifies the backend to use
	Backend ProviderBackend `json:"backend" yaml:"backend"`

	// LibraryPath overrides the platform default ONNX Runtime shared library.
	LibraryPath string `json:"library_path" yaml:"library_path"`

	// Optimization holds the session level tuning knobs.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`

	// Provider specific options. Only the one matching Backend is used.
	CUDA     CUDAOptions     `json:"cuda" yaml:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml" yaml:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns a CPU configuration with the default optimization
// settings.
func DefaultConfig() Config {
	return Config{
		Backend:      CPUProviderBackend,
		Optimization: DefaultOptimizationConfig(),
		OpenVINO:     OpenVINOOptions{DeviceType: "CPU", Precision: "FP32"},
	}
}

// Backends lists every supported backend.
func Backends() []ProviderBackend {
	return []ProviderBackend{
		CPUProviderBackend,
		CUDAProviderBackend,
		CoreMLProviderBackend,
		OpenVINOProviderBackend,
	}
}

// ParseBackend converts a user supplied name into a ProviderBackend.
// The empty string selects the CPU backend.
func ParseBackend(name string) (ProviderBackend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CPUProviderBackend, nil
	}
	for _, b := range Backends() {
		if string(b) == name {
			return b, nil
		}
	}
	return "", errors.Errorf("unknown provider backend %q", name)
}

// NewProvider creates a new provider based on the required backend.
//
// Arguments:
//   - config: The provider configuration.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the backend is not supported.
func NewProvider(config Config) (ExecutionProvider, error) {
	backend, err := ParseBackend(string(config.Backend))
	if err != nil {
		return nil, err
	}
	switch backend {
	case CPUProviderBackend:
		return NewCPUProvider(), nil
	case CUDAProviderBackend:
		return NewCUDAProvider(config.CUDA), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(config.CoreML), nil
	case OpenVINOProviderBackend:
		return NewOpenVINOProvider(config.OpenVINO), nil
	default:
		return nil, errors.Errorf("no matching provider backend registered: %s", backend)
	}
}
