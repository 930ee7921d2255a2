package runner

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/config"
	"github.com/nvr-ai/cashvision/images"
	"github.com/nvr-ai/cashvision/inference"
	"github.com/nvr-ai/cashvision/inference/detectors"
	"github.com/nvr-ai/cashvision/models"
)

type stubEngine struct {
	result *detectors.Result
	err    error
	calls  int
	closed bool
}

func (e *stubEngine) Predict(ctx context.Context, img image.Image) (*detectors.Result, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	b := img.Bounds()
	res := *e.result
	res.Width, res.Height = b.Dx(), b.Dy()
	res.Detections = append([]detectors.Detection(nil), e.result.Detections...)
	return &res, nil
}

func (e *stubEngine) Close() error {
	e.closed = true
	return nil
}

type recordingViewer struct {
	paths []string
	err   error
}

func (v *recordingViewer) Show(ctx context.Context, path string) error {
	v.paths = append(v.paths, path)
	if v.err != nil {
		return v.err
	}
	// Mirror the real viewers: the file must decode.
	img, err := images.Read(path)
	defer img.Close()
	return err
}

// redirectSaver writes somewhere other than the requested path.
type redirectSaver struct {
	dir       string
	requested string
}

func (s *redirectSaver) Annotate(img gocv.Mat, dets []common.BoundingBox, path string) (string, error) {
	s.requested = path
	return images.NewAnnotator().Annotate(img, dets, filepath.Join(s.dir, "elsewhere", filepath.Base(path)))
}

type fixture struct {
	cfg    config.Config
	engine *stubEngine
	viewer *recordingViewer
	loads  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	model := filepath.Join(dir, "best.onnx")
	require.NoError(t, os.WriteFile(model, []byte("onnx"), 0o644))

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()
	gocv.Rectangle(&mat, image.Rect(100, 100, 300, 250), color.RGBA{R: 200, G: 180, B: 90, A: 255}, -1)
	img := filepath.Join(dir, "prueba.jpg")
	require.True(t, gocv.IMWrite(img, mat))

	cfg := config.Default()
	cfg.Model = model
	cfg.Image = img
	cfg.OutputDir = filepath.Join(dir, "runs", "detect", "predict")
	cfg.Viewer = "none"

	return &fixture{
		cfg: cfg,
		engine: &stubEngine{result: &detectors.Result{Detections: []detectors.Detection{
			{Label: "billete_5000", ClassID: 2, Confidence: 0.91, X1: 100, Y1: 100, X2: 300, Y2: 250},
			{Label: "billete_1000", ClassID: 0, Confidence: 0.52, X1: 350, Y1: 120, X2: 600, Y2: 260},
			{Label: "billete_2000", ClassID: 1, Confidence: 0.31, X1: 20, Y1: 300, X2: 200, Y2: 460},
		}}},
		viewer: &recordingViewer{},
	}
}

func (f *fixture) deps(t *testing.T) Deps {
	return Deps{
		Load: func(cfg config.Config, classes *models.ClassSet, logger *zap.Logger) (inference.Engine, error) {
			f.loads++
			return f.engine, nil
		},
		Viewer: f.viewer,
		Logger: zaptest.NewLogger(t),
	}
}

func TestRun(t *testing.T) {
	f := newFixture(t)

	report, err := Run(context.Background(), f.cfg, f.deps(t))
	require.NoError(t, err)

	want := filepath.Join(f.cfg.OutputDir, "prueba.jpg")
	assert.Equal(t, want, report.OutputPath)
	assert.FileExists(t, want)
	assert.Equal(t, []string{want}, f.viewer.paths)

	require.Len(t, report.Result.Detections, 2)
	for _, d := range report.Result.Detections {
		assert.GreaterOrEqual(t, d.Confidence, float32(0.4))
	}
	assert.Equal(t, 6000, report.Summary.Total)
	assert.Equal(t, 640, report.Result.Width)

	var stages []string
	for _, tt := range report.Timings {
		stages = append(stages, tt.Name)
	}
	assert.Equal(t, []string{StageLoad, StageInfer, StageSave, StageDisplay}, stages)
	assert.True(t, f.engine.closed)
}

func TestRunShowsThePathThatWasSaved(t *testing.T) {
	f := newFixture(t)
	saver := &redirectSaver{dir: t.TempDir()}
	deps := f.deps(t)
	deps.Saver = saver

	report, err := Run(context.Background(), f.cfg, deps)
	require.NoError(t, err)

	assert.Equal(t, f.cfg.OutputPath(), saver.requested)
	assert.NotEqual(t, saver.requested, report.OutputPath)
	assert.FileExists(t, report.OutputPath)
	assert.Equal(t, []string{report.OutputPath}, f.viewer.paths)
}

func TestRunMissingInputs(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.Config)
		kind string
	}{
		{"model", func(c *config.Config) { c.Model = filepath.Join(filepath.Dir(c.Model), "missing.onnx") }, "model"},
		{"image", func(c *config.Config) { c.Image = filepath.Join(filepath.Dir(c.Image), "missing.jpg") }, "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.edit(&f.cfg)

			_, err := Run(context.Background(), f.cfg, f.deps(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrFileNotFound))

			var fnf *common.FileNotFoundError
			require.True(t, errors.As(err, &fnf))
			assert.Equal(t, tt.kind, fnf.Kind)

			assert.Zero(t, f.loads)
			assert.Empty(t, f.viewer.paths)
			assert.NoFileExists(t, f.cfg.OutputPath())
		})
	}
}

func TestRunModelLoadFailure(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t)
	deps.Load = func(cfg config.Config, classes *models.ClassSet, logger *zap.Logger) (inference.Engine, error) {
		return nil, &common.ModelLoadError{Path: cfg.Model, Err: errors.New("not an onnx graph")}
	}

	_, err := Run(context.Background(), f.cfg, deps)
	assert.True(t, errors.Is(err, common.ErrModelLoad))
	assert.Empty(t, f.viewer.paths)
}

func TestRunDefaultLoaderRejectsCorruptModel(t *testing.T) {
	f := newFixture(t)
	deps := f.deps(t)
	deps.Load = nil

	_, err := Run(context.Background(), f.cfg, deps)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrModelLoad))
	assert.Empty(t, f.viewer.paths)
}

func TestRunInferenceFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.err = &common.InferenceError{Stage: "run", Err: errors.New("boom")}

	_, err := Run(context.Background(), f.cfg, f.deps(t))
	assert.True(t, errors.Is(err, common.ErrInference))
	assert.Empty(t, f.viewer.paths)
	assert.NoFileExists(t, f.cfg.OutputPath())
	assert.True(t, f.engine.closed)
}

func TestRunUndecodableImage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.cfg.Image, []byte("not a jpeg"), 0o644))

	_, err := Run(context.Background(), f.cfg, f.deps(t))
	assert.True(t, errors.Is(err, common.ErrInference))
	assert.True(t, errors.Is(err, common.ErrDecode))
	assert.Zero(t, f.engine.calls)
}

func TestRunSaveFailure(t *testing.T) {
	f := newFixture(t)
	// A regular file where the output directory should be.
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.OutputDir), 0o755))
	require.NoError(t, os.WriteFile(f.cfg.OutputDir, []byte("x"), 0o644))

	_, err := Run(context.Background(), f.cfg, f.deps(t))
	assert.True(t, errors.Is(err, common.ErrSave))
	assert.Empty(t, f.viewer.paths)
}

func TestRunViewerError(t *testing.T) {
	f := newFixture(t)
	f.viewer.err = errors.New("no display")

	_, err := Run(context.Background(), f.cfg, f.deps(t))
	assert.EqualError(t, err, "no display")
	assert.FileExists(t, f.cfg.OutputPath())
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, f.cfg, f.deps(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.loads)
	assert.Empty(t, f.viewer.paths)
}

func TestRunInvalidConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.Confidence = 2

	_, err := Run(context.Background(), f.cfg, f.deps(t))
	assert.Error(t, err)
	assert.Zero(t, f.loads)
}

func TestKeepConfident(t *testing.T) {
	dets := []detectors.Detection{{Confidence: 0.9}, {Confidence: 0.39}, {Confidence: 0.4}}
	got := keepConfident(dets, 0.4)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-6)
	assert.InDelta(t, 0.4, got[1].Confidence, 1e-6)
}

func TestRunPassesRelevantClassesToLoader(t *testing.T) {
	f := newFixture(t)
	f.cfg.RelevantClasses = []string{"billete_5000"}

	var got []string
	deps := f.deps(t)
	deps.Load = func(cfg config.Config, classes *models.ClassSet, logger *zap.Logger) (inference.Engine, error) {
		got = cfg.Detector().RelevantClasses
		return f.engine, nil
	}

	_, err := Run(context.Background(), f.cfg, deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"billete_5000"}, got)
}
