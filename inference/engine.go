// Package inference - Inference engine interface and builder.
package inference

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/cashvision/inference/detectors"
	"github.com/nvr-ai/cashvision/logging"
	"github.com/nvr-ai/cashvision/models"
)

// Engine defines the interface for ML inference engines. *detectors.Detector
// satisfies it.
type Engine interface {
	Predict(ctx context.Context, img image.Image) (*detectors.Result, error)
	Close() error
}

// EngineBuilder assembles an Engine with a fluent API.
type EngineBuilder struct {
	config    detectors.Config
	classes   *models.ClassSet
	modelPath string
	logger    *zap.Logger
	detector  Engine
	err       error
}

// NewEngineBuilder creates a new engine builder with the default detector
// configuration and the built-in banknote classes.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		config:  detectors.DefaultConfig(),
		classes: models.BanknoteClasses,
	}
}

// WithConfig sets the detector configuration.
func (b *EngineBuilder) WithConfig(cfg detectors.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if err := cfg.Validate(); err != nil {
		b.err = errors.Wrap(err, "detector config")
		return b
	}
	b.config = cfg
	return b
}

// WithClasses sets the class set used to label detections.
func (b *EngineBuilder) WithClasses(classes *models.ClassSet) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if classes == nil || classes.Len() == 0 {
		b.err = errors.New("class set is empty")
		return b
	}
	b.classes = classes
	return b
}

// WithModel sets the path of the ONNX model to load at Build.
//
// Arguments:
//   - path: The model file.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(path string) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.modelPath = path
	return b
}

// WithLogger sets the logger for the engine.
func (b *EngineBuilder) WithLogger(logger *zap.Logger) *EngineBuilder {
	b.logger = logger
	return b
}

// WithDetector uses an already loaded detector instead of loading a model.
func (b *EngineBuilder) WithDetector(p Engine) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.detector = p
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - Engine: The engine.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build loads the model (unless a detector was supplied) and returns the engine.
//
// Returns:
//   - Engine: The engine.
//   - error: The builder error, or the error from detectors.NewDetector.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	logger := logging.OrNop(b.logger)

	p := b.detector
	if p == nil {
		if b.modelPath == "" {
			return nil, errors.New("model not configured")
		}
		d, err := detectors.NewDetector(b.modelPath, b.classes, b.config)
		if err != nil {
			return nil, err
		}
		format, size := d.Format(), d.InputSize()
		logger.Debug("model loaded",
			zap.String("path", b.modelPath),
			zap.Int("input_width", size.X),
			zap.Int("input_height", size.Y),
			zap.Stringer("output", format),
			zap.String("class_set", d.Classes().Name),
			zap.Int("classes", d.Classes().Len()),
		)
		p = d
	}

	return &engine{detector: p, logger: logger}, nil
}

// engine implements the Engine interface.
type engine struct {
	detector Engine
	logger   *zap.Logger
}

// Predict runs the detector and logs the outcome.
func (e *engine) Predict(ctx context.Context, img image.Image) (*detectors.Result, error) {
	res, err := e.detector.Predict(ctx, img)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("inference complete",
		zap.Int("detections", len(res.Detections)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Close releases the detector.
func (e *engine) Close() error {
	return e.detector.Close()
}
