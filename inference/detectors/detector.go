// Package detectors - YOLO object detection on ONNX Runtime.
package detectors

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/inference/preprocess"
	"github.com/nvr-ai/cashvision/inference/providers"
	"github.com/nvr-ai/cashvision/models"
	"github.com/nvr-ai/cashvision/models/postprocess"
)

// Detection is one detected object in original image pixels.
type Detection = common.BoundingBox

// Result is the outcome of one Predict call.
type Result struct {
	// Detections in descending confidence order.
	Detections []Detection
	// Width and Height of the source image.
	Width, Height int
	// Duration covers preprocessing, the session run and decoding.
	Duration time.Duration
}

// Labels returns the label of every detection, in order.
func (r *Result) Labels() []string {
	out := make([]string, len(r.Detections))
	for i, d := range r.Detections {
		out[i] = d.Label
	}
	return out
}

// Detector runs a YOLO model exported to ONNX. The session tensors are
// shared, so Predict calls are serialized.
type Detector struct {
	mu        sync.Mutex
	session   *providers.Session
	config    Config
	classes   *models.ClassSet
	relevant  map[int]bool
	format    OutputFormat
	inputW    int
	inputH    int
	modelPath string
}

// NewDetector loads a model and prepares it for inference.
//
// Arguments:
//   - modelPath: Path to the .onnx file.
//   - classes: The classes the model was trained on, in index order.
//   - cfg: The detector configuration.
//
// Returns:
//   - *Detector: The detector. Close it to release the session.
//   - error: A common.FileNotFoundError when the file is missing, otherwise a
//     common.ModelLoadError.
func NewDetector(modelPath string, classes *models.ClassSet, cfg Config) (*Detector, error) {
	if err := common.CheckFile("model", modelPath); err != nil {
		return nil, err
	}
	if classes == nil {
		classes = models.BanknoteClasses
	}
	loadErr := func(err error) error {
		return &common.ModelLoadError{Path: modelPath, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, loadErr(err)
	}
	relevant, err := relevantIndices(classes, cfg.RelevantClasses)
	if err != nil {
		return nil, loadErr(err)
	}

	provider, err := providers.NewProvider(cfg.Provider)
	if err != nil {
		return nil, loadErr(err)
	}
	session, err := providers.NewSession(provider, providers.NewSessionArgs{
		ModelPath:    modelPath,
		LibraryPath:  cfg.Provider.LibraryPath,
		Optimization: cfg.Provider.Optimization,
	})
	if err != nil {
		return nil, loadErr(err)
	}

	d := &Detector{
		session:   session,
		config:    cfg,
		classes:   classes,
		relevant:  relevant,
		modelPath: modelPath,
	}
	if err := d.bind(); err != nil {
		session.Close()
		return nil, loadErr(err)
	}
	return d, nil
}

// bind checks the session shapes against the configuration.
func (d *Detector) bind() error {
	in := d.session.InputInfo.Shape
	if len(in) != 4 || in[1] != 3 {
		return errors.Errorf("input %s has shape %v, want [1, 3, h, w]", d.session.InputInfo.Name, in)
	}
	d.inputH, d.inputW = int(in[2]), int(in[3])
	want := d.config.InputShape
	if (want.X != 0 || want.Y != 0) && (want.X != d.inputW || want.Y != d.inputH) {
		return errors.Errorf("model input is %dx%d, configured %dx%d", d.inputW, d.inputH, want.X, want.Y)
	}

	format, err := DetectLayout(d.session.OutputInfo.Shape, d.classes.Len())
	if err != nil {
		return err
	}
	d.format = format
	return nil
}

func relevantIndices(classes *models.ClassSet, names []string) (map[int]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[int]bool, len(names))
	for _, n := range names {
		idx, err := classes.Index(n)
		if err != nil {
			return nil, err
		}
		out[idx] = true
	}
	return out, nil
}

// Format returns the output layout detected at load time.
func (d *Detector) Format() OutputFormat {
	return d.format
}

// InputSize returns the model input width and height.
func (d *Detector) InputSize() image.Point {
	return image.Point{X: d.inputW, Y: d.inputH}
}

// Classes returns the class set the detector labels with.
func (d *Detector) Classes() *models.ClassSet {
	return d.classes
}

// Predict runs inference on the provided image.
//
// Arguments:
//   - ctx: Checked before the session runs.
//   - img: The image to detect objects in.
//
// Returns:
//   - *Result: Detections at or above the confidence threshold after NMS.
//   - error: A common.InferenceError, or the context error.
func (d *Detector) Predict(ctx context.Context, img image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, &common.InferenceError{Stage: "run", Err: errors.New("detector is closed")}
	}

	start := time.Now()
	frame, err := preprocess.PrepareInput(img, d.session.Input.GetData(), d.inputW, d.inputH, d.config.Letterbox)
	if err != nil {
		return nil, &common.InferenceError{Stage: "preprocess", Err: err}
	}

	if err := d.session.Run(); err != nil {
		return nil, &common.InferenceError{Stage: "run", Err: err}
	}

	dets, err := Decode(d.session.Output.GetData(), d.format, frame, DecodeOptions{
		ConfidenceThreshold: d.config.ConfidenceThreshold,
		MinBoxSize:          d.config.MinBoxSize,
		MaxAreaRatio:        d.config.MaxAreaRatio,
		Classes:             d.classes,
		Relevant:            d.relevant,
	})
	if err != nil {
		return nil, &common.InferenceError{Stage: "decode", Err: err}
	}

	nms := d.config.NMS
	return &Result{
		Detections: postprocess.ApplyNMS(dets, &nms),
		Width:      frame.SrcWidth,
		Height:     frame.SrcHeight,
		Duration:   time.Since(start),
	}, nil
}

// Close releases the session. It is safe to call more than once.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	return err
}
