// Package detectors - Detector configuration.
package detectors

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/cashvision/inference/providers"
	"github.com/nvr-ai/cashvision/models/postprocess"
)

// Config represents the configuration for a YOLO detector.
type Config struct {
	// Backend execution provider configuration
	Provider providers.Config `json:"provider"`

	// InputShape defines the expected input dimensions (width, height). The
	// zero value accepts whatever the model declares.
	InputShape image.Point `json:"input_shape"`

	// ConfidenceThreshold filters detections below this confidence level
	ConfidenceThreshold float32 `json:"confidence_threshold"`

	// NMS controls Non-Maximum Suppression.
	NMS postprocess.NMSConfig `json:"nms"`

	// Letterbox preserves the aspect ratio when resizing. When false the
	// image is stretched to the input size.
	Letterbox bool `json:"letterbox"`

	// MinBoxSize drops boxes narrower or shorter than this many pixels.
	MinBoxSize float32 `json:"min_box_size"`

	// MaxAreaRatio drops boxes that cover more than this fraction of the image.
	MaxAreaRatio float32 `json:"max_area_ratio"`

	// RelevantClasses lists object classes to detect (empty = all classes)
	RelevantClasses []string `json:"relevant_classes"`
}

// DefaultConfig returns the configuration used for banknote detection.
//
// Returns:
//   - Config: CPU provider, 640x640 input, confidence 0.4.
func DefaultConfig() Config {
	return Config{
		Provider:            providers.DefaultConfig(),
		InputShape:          image.Point{X: 640, Y: 640},
		ConfidenceThreshold: 0.4,
		NMS:                 *postprocess.DefaultNMSConfig(),
		Letterbox:           true,
		MinBoxSize:          10,
		MaxAreaRatio:        0.95,
		RelevantClasses:     []string{},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.NMS.IoUThreshold < 0 || c.NMS.IoUThreshold > 1 {
		return errors.Errorf("nms iou threshold must be in [0,1], got %v", c.NMS.IoUThreshold)
	}
	if c.NMS.CrossClassIoUThreshold < 0 || c.NMS.CrossClassIoUThreshold > 1 {
		return errors.Errorf("cross-class iou threshold must be in [0,1], got %v", c.NMS.CrossClassIoUThreshold)
	}
	if c.InputShape.X < 0 || c.InputShape.Y < 0 {
		return errors.Errorf("invalid input shape %v", c.InputShape)
	}
	if c.MinBoxSize < 0 {
		return errors.Errorf("min box size must not be negative, got %v", c.MinBoxSize)
	}
	if c.MaxAreaRatio <= 0 || c.MaxAreaRatio > 1 {
		return errors.Errorf("max area ratio must be in (0,1], got %v", c.MaxAreaRatio)
	}
	if _, err := providers.ParseBackend(string(c.Provider.Backend)); err != nil {
		return err
	}
	return c.Provider.Optimization.Validate()
}
