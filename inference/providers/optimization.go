// Package providers - ONNX Runtime session tuning.
package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// OptimizationConfig contains the ONNX Runtime session settings exposed to
// users.
type OptimizationConfig struct {
	// GraphOptimization is one of "disable", "basic", "extended" or "all".
	GraphOptimization string `json:"graph_optimization" yaml:"graph_optimization"`

	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets ONNX
	// Runtime decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`
}

// DefaultOptimizationConfig enables extended graph rewrites and leaves
// threading to ONNX Runtime.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		GraphOptimization: "extended",
	}
}

// GraphOptimizationLevel maps the configured name onto the ONNX Runtime level.
func (c OptimizationConfig) GraphOptimizationLevel() (ort.GraphOptimizationLevel, error) {
	switch strings.ToLower(c.GraphOptimization) {
	case "disable", "none":
		return ort.GraphOptimizationLevelDisableAll, nil
	case "basic":
		return ort.GraphOptimizationLevelEnableBasic, nil
	case "", "extended":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case "all":
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, errors.Errorf("unknown graph optimization level %q", c.GraphOptimization)
	}
}

// Validate checks the configuration without touching ONNX Runtime.
func (c OptimizationConfig) Validate() error {
	if _, err := c.GraphOptimizationLevel(); err != nil {
		return err
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.New("thread counts must not be negative")
	}
	return nil
}

// OptimizedSessionOptions builds session options from the configuration and
// registers the execution provider on them.
//
// Arguments:
//   - config: Optimization configuration to apply.
//   - provider: The execution provider to register.
//
// Returns:
//   - *ort.SessionOptions: Configured session options. The caller destroys them.
//   - error: Configuration error if any.
func OptimizedSessionOptions(config OptimizationConfig, provider ExecutionProvider) (*ort.SessionOptions, error) {
	level, err := config.GraphOptimizationLevel()
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}

	apply := func() error {
		if err := options.SetGraphOptimizationLevel(level); err != nil {
			return errors.Wrap(err, "set graph optimization level")
		}
		if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
			return errors.Wrap(err, "set intra-op threads")
		}
		if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
			return errors.Wrap(err, "set inter-op threads")
		}
		if provider != nil {
			return provider.Append(options)
		}
		return nil
	}
	if err := apply(); err != nil {
		options.Destroy()
		return nil, err
	}

	return options, nil
}
