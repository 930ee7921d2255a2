// Package providers - CoreML based execution provider.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML flag bits, see coreml_provider_factory.h.
const (
	coreMLFlagUseCPUOnly        uint32 = 0x001
	coreMLFlagEnableOnSubgraph  uint32 = 0x002
	coreMLFlagOnlyDeviceWithANE uint32 = 0x004
	coreMLFlagOnlyStaticShapes  uint32 = 0x008
	coreMLFlagCreateMLProgram   uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpu_only" yaml:"cpu_only"`
	// Enable CoreML on subgraphs of control flow operators.
	EnableOnSubgraph bool `json:"enable_on_subgraph" yaml:"enable_on_subgraph"`
	// Only enable CoreML on devices with an Apple Neural Engine.
	OnlyANE bool `json:"only_ane" yaml:"only_ane"`
	// Only take nodes whose inputs have static shapes.
	RequireStaticShapes bool `json:"require_static_shapes" yaml:"require_static_shapes"`
	// Create an MLProgram instead of a NeuralNetwork model (Core ML 5+).
	MLProgram bool `json:"ml_program" yaml:"ml_program"`
}

func (CoreMLOptions) isProviderOptions() {}

// Flags packs the options into the CoreML provider bit field.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraph {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.OnlyANE {
		flags |= coreMLFlagOnlyDeviceWithANE
	}
	if o.RequireStaticShapes {
		flags |= coreMLFlagOnlyStaticShapes
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}

// CoreMLProvider implements the ExecutionProvider interface.
type CoreMLProvider struct {
	options CoreMLOptions
}

// NewCoreMLProvider creates a new CoreML provider.
func NewCoreMLProvider(options CoreMLOptions) *CoreMLProvider {
	return &CoreMLProvider{
		options: options,
	}
}

// Backend returns the backend of the CoreML provider.
func (p *CoreMLProvider) Backend() ProviderBackend {
	return CoreMLProviderBackend
}

// Options returns the options of the CoreML provider.
func (p *CoreMLProvider) Options() ProviderOptions {
	return p.options
}

// Append enables CoreML on the session options.
func (p *CoreMLProvider) Append(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderCoreML(p.options.Flags()); err != nil {
		return errors.Wrap(err, "enable CoreML")
	}
	return nil
}
