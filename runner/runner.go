// Package runner ties a detection run together: load the model, detect,
// save the annotated image and show it.
package runner

import (
	"context"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/config"
	"github.com/nvr-ai/cashvision/images"
	"github.com/nvr-ai/cashvision/inference"
	"github.com/nvr-ai/cashvision/inference/detectors"
	"github.com/nvr-ai/cashvision/logging"
	"github.com/nvr-ai/cashvision/models"
	"github.com/nvr-ai/cashvision/profiler"
	"github.com/nvr-ai/cashvision/viewer"
)

// Stage names recorded on the stopwatch.
const (
	StageLoad    = "load"
	StageInfer   = "infer"
	StageSave    = "save"
	StageDisplay = "display"
)

// Loader turns a configuration into a ready engine.
type Loader func(cfg config.Config, classes *models.ClassSet, logger *zap.Logger) (inference.Engine, error)

// Saver draws detections on an image and writes it. It returns the path
// actually written.
type Saver interface {
	Annotate(img gocv.Mat, detections []common.BoundingBox, path string) (string, error)
}

// Deps are the collaborators of Run. Zero fields get the production
// implementation.
type Deps struct {
	Load      Loader
	Saver     Saver
	Viewer    viewer.Viewer
	Logger    *zap.Logger
	Stopwatch *profiler.Stopwatch
}

// Report describes a completed run.
type Report struct {
	// OutputPath is the annotated image, as written and as shown.
	OutputPath string
	Result     *detectors.Result
	Summary    models.CashSummary
	Timings    []profiler.TimeTracker
}

// LoadEngine is the default Loader. It builds an ONNX Runtime backed engine.
func LoadEngine(cfg config.Config, classes *models.ClassSet, logger *zap.Logger) (inference.Engine, error) {
	return inference.NewEngineBuilder().
		WithConfig(cfg.Detector()).
		WithClasses(classes).
		WithModel(cfg.Model).
		WithLogger(logger).
		Build()
}

func (d Deps) withDefaults(cfg config.Config) (Deps, error) {
	d.Logger = logging.OrNop(d.Logger)
	if d.Load == nil {
		d.Load = LoadEngine
	}
	if d.Saver == nil {
		d.Saver = images.NewAnnotator()
	}
	if d.Stopwatch == nil {
		d.Stopwatch = profiler.NewStopwatch()
	}
	if d.Viewer == nil {
		kind, err := cfg.ViewerKind()
		if err != nil {
			return d, err
		}
		v, err := viewer.New(kind, viewer.Options{Logger: d.Logger})
		if err != nil {
			return d, err
		}
		d.Viewer = v
	}
	return d, nil
}

// Run executes one detection run. The model and image are checked before
// anything is loaded, and the viewer receives exactly the path the saver
// wrote.
//
// Arguments:
//   - ctx: Checked between stages. Cancelling it before display aborts the run.
//   - cfg: The run configuration.
//   - deps: Collaborators; zero fields use the defaults.
//
// Returns:
//   - *Report: The saved path, detections and timings.
//   - error: A *common.FileNotFoundError, *common.ModelLoadError,
//     *common.InferenceError, *common.SaveError or *common.DecodeError, or
//     a configuration error.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := common.CheckFile("model", cfg.Model); err != nil {
		return nil, err
	}
	if err := common.CheckFile("image", cfg.Image); err != nil {
		return nil, err
	}
	classes, err := cfg.ClassSet()
	if err != nil {
		return nil, err
	}
	deps, err = deps.withDefaults(cfg)
	if err != nil {
		return nil, err
	}
	logger, sw := deps.Logger, deps.Stopwatch

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := sw.StartOperation(StageLoad)
	engine, err := deps.Load(cfg, classes, logger)
	done()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("close engine", zap.Error(err))
		}
	}()

	src, err := images.Read(cfg.Image)
	defer src.Close()
	if err != nil {
		return nil, &common.InferenceError{Stage: "decode", Err: err}
	}
	img, err := src.ToImage()
	if err != nil {
		return nil, &common.InferenceError{Stage: "decode", Err: &common.DecodeError{Path: cfg.Image, Err: err}}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = sw.StartOperation(StageInfer)
	res, err := engine.Predict(ctx, img)
	done()
	if err != nil {
		return nil, err
	}
	res.Detections = keepConfident(res.Detections, cfg.Confidence)

	summary := models.Summarize(res.Labels())
	logger.Info("detections",
		zap.String("image", cfg.Image),
		zap.Int("count", len(res.Detections)),
		zap.Stringer("cash", summary),
	)
	for i := range res.Detections {
		logger.Debug("detection", zap.Stringer("box", &res.Detections[i]))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = sw.StartOperation(StageSave)
	saved, err := deps.Saver.Annotate(src, res.Detections, cfg.OutputPath())
	done()
	if err != nil {
		return nil, err
	}
	logger.Info("saved", zap.String("path", saved))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done = sw.StartOperation(StageDisplay)
	err = deps.Viewer.Show(ctx, saved)
	done()
	if err != nil {
		return nil, err
	}

	logger.Debug("timings", sw.Fields()...)
	return &Report{
		OutputPath: saved,
		Result:     res,
		Summary:    summary,
		Timings:    sw.Operations(),
	}, nil
}

// keepConfident drops detections scoring below threshold, keeping order.
func keepConfident(dets []detectors.Detection, threshold float32) []detectors.Detection {
	out := dets[:0]
	for _, d := range dets {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
