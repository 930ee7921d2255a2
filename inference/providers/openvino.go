// Package providers - OpenVINO based execution provider.
package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type (CPU, GPU, NPU).
	DeviceType string `json:"device_type" yaml:"device_type"`
	// Inference precision: FP32, FP16 or ACCURACY.
	Precision string `json:"precision" yaml:"precision"`
	// Overrides the accelerator default number of threads. Zero keeps the default.
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads"`
	// Rewrites dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes"`
}

func (OpenVINOOptions) isProviderOptions() {}

// ToMap converts the options into the key/value form ONNX Runtime expects.
func (o OpenVINOOptions) ToMap() map[string]string {
	m := map[string]string{
		"disable_dynamic_shapes": strconv.FormatBool(o.DisableDynamicShapes),
	}
	if o.DeviceType != "" {
		m["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		m["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	return m
}

// OpenVINOProvider implements the ExecutionProvider interface.
type OpenVINOProvider struct {
	options OpenVINOOptions
}

// NewOpenVINOProvider creates a new OpenVINO provider.
func NewOpenVINOProvider(args OpenVINOOptions) *OpenVINOProvider {
	return &OpenVINOProvider{options: args}
}

// Backend returns the backend of the OpenVINO provider.
func (p *OpenVINOProvider) Backend() ProviderBackend {
	return OpenVINOProviderBackend
}

// Options returns the options of the OpenVINO provider.
func (p *OpenVINOProvider) Options() ProviderOptions {
	return p.options
}

// Append enables OpenVINO on the session options.
func (p *OpenVINOProvider) Append(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderOpenVINO(p.options.ToMap()); err != nil {
		return errors.Wrap(err, "enable OpenVINO")
	}
	return nil
}
