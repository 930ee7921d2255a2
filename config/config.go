// Package config holds the settings of a detection run and loads them from
// YAML.
package config

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/images"
	"github.com/nvr-ai/cashvision/inference/detectors"
	"github.com/nvr-ai/cashvision/inference/providers"
	"github.com/nvr-ai/cashvision/models"
	"github.com/nvr-ai/cashvision/models/postprocess"
	"github.com/nvr-ai/cashvision/viewer"
)

const (
	DefaultModel = "best.onnx"
	DefaultImage = "prueba.jpg"
)

// Config represents the configuration of a detection run.
type Config struct {
	// Model is the ONNX export of the YOLO detector.
	Model string `json:"model" yaml:"model"`
	// Image is the input picture.
	Image string `json:"image" yaml:"image"`
	// OutputDir receives the annotated image under the input's base name.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// Classes is an optional dataset YAML with the class names. The built-in
	// banknote classes are used when empty.
	Classes string `json:"classes" yaml:"classes"`
	// RelevantClasses restricts detection to these class names. Empty keeps
	// every class.
	RelevantClasses []string `json:"relevant_classes" yaml:"relevant_classes"`
	// Viewer selects the display backend: gocv, fyne or none.
	Viewer string `json:"viewer" yaml:"viewer"`

	Confidence    float32 `json:"confidence" yaml:"confidence"`
	IoU           float32 `json:"iou" yaml:"iou"`
	CrossClassIoU float32 `json:"cross_class_iou" yaml:"cross_class_iou"`
	BestPerClass  bool    `json:"best_per_class" yaml:"best_per_class"`

	// InputSize is the square model input. Zero uses the model's declared size.
	InputSize    int     `json:"input_size" yaml:"input_size"`
	Letterbox    bool    `json:"letterbox" yaml:"letterbox"`
	MinBoxSize   float32 `json:"min_box_size" yaml:"min_box_size"`
	MaxAreaRatio float32 `json:"max_area_ratio" yaml:"max_area_ratio"`

	Provider providers.Config `json:"provider" yaml:"provider"`
	Live     LiveConfig       `json:"live" yaml:"live"`

	Debug bool `json:"debug" yaml:"debug"`
}

// LiveConfig configures the camera loop.
type LiveConfig struct {
	// Source is a camera index ("0") or a video file / stream URL.
	Source string `json:"source" yaml:"source"`
	// Window is the title of the live window.
	Window string `json:"window" yaml:"window"`
	// MaxFrames stops the loop after this many frames. Zero runs until a key
	// is pressed.
	MaxFrames int `json:"max_frames" yaml:"max_frames"`
}

// Default returns the configuration used when no file or flag overrides it.
func Default() Config {
	det := detectors.DefaultConfig()
	return Config{
		Model:         DefaultModel,
		Image:         DefaultImage,
		OutputDir:     images.DefaultOutputDir,
		Viewer:        string(viewer.KindGoCV),
		Confidence:    det.ConfidenceThreshold,
		IoU:           det.NMS.IoUThreshold,
		CrossClassIoU: det.NMS.CrossClassIoUThreshold,
		BestPerClass:  det.NMS.BestPerClass,
		InputSize:     det.InputShape.X,
		Letterbox:     det.Letterbox,
		MinBoxSize:    det.MinBoxSize,
		MaxAreaRatio:  det.MaxAreaRatio,
		Provider:      det.Provider,
		Live: LiveConfig{
			Source: "0",
			Window: "CashVision",
		},
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
//
// Returns:
//   - Config: The merged configuration.
//   - error: A *common.FileNotFoundError when path is missing, or a parse or
//     validation error.
func Load(path string) (Config, error) {
	if err := common.CheckFile("config", path); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "parse")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Model == "" {
		return errors.New("model path is empty")
	}
	if c.Image == "" {
		return errors.New("image path is empty")
	}
	if c.OutputDir == "" {
		return errors.New("output dir is empty")
	}
	if _, err := viewer.ParseKind(c.Viewer); err != nil {
		return err
	}
	if c.InputSize < 0 {
		return errors.Errorf("input size must not be negative, got %d", c.InputSize)
	}
	if c.Live.MaxFrames < 0 {
		return errors.Errorf("live max frames must not be negative, got %d", c.Live.MaxFrames)
	}
	for _, name := range c.RelevantClasses {
		if name == "" {
			return errors.New("relevant_classes contains an empty name")
		}
	}
	return c.Detector().Validate()
}

// Detector converts the run settings into a detector configuration.
func (c Config) Detector() detectors.Config {
	return detectors.Config{
		Provider:            c.Provider,
		InputShape:          image.Point{X: c.InputSize, Y: c.InputSize},
		ConfidenceThreshold: c.Confidence,
		NMS: postprocess.NMSConfig{
			IoUThreshold:           c.IoU,
			ClassAware:             true,
			CrossClassIoUThreshold: c.CrossClassIoU,
			BestPerClass:           c.BestPerClass,
		},
		Letterbox:       c.Letterbox,
		MinBoxSize:      c.MinBoxSize,
		MaxAreaRatio:    c.MaxAreaRatio,
		RelevantClasses: append([]string{}, c.RelevantClasses...),
	}
}

// ClassSet returns the configured class set, loading the dataset YAML when
// one is set.
func (c Config) ClassSet() (*models.ClassSet, error) {
	if c.Classes == "" {
		return models.BanknoteClasses, nil
	}
	return models.LoadClassSet(c.Classes)
}

// ViewerKind returns the parsed viewer backend.
func (c Config) ViewerKind() (viewer.Kind, error) {
	return viewer.ParseKind(c.Viewer)
}

// OutputPath is where the annotated image of c.Image is written.
func (c Config) OutputPath() string {
	return images.OutputPath(filepath.Clean(c.OutputDir), c.Image)
}
