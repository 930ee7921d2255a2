// Command live runs banknote detection on a camera or video feed and shows
// the annotated frames until a key is pressed.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/config"
	"github.com/nvr-ai/cashvision/images"
	"github.com/nvr-ai/cashvision/inference"
	"github.com/nvr-ai/cashvision/logging"
	"github.com/nvr-ai/cashvision/models"
	"github.com/nvr-ai/cashvision/profiler"
	"github.com/nvr-ai/cashvision/runner"
)

func main() {
	app := &cli.App{
		Name:  "live",
		Usage: "detect banknotes on a camera or video feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "YOLO model exported to ONNX",
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "camera index, stream URL or video file",
			},
			&cli.Float64Flag{
				Name:  "conf",
				Usage: "minimum detection confidence",
			},
			&cli.IntFlag{
				Name:  "max-frames",
				Usage: "stop after this many frames (0: until a key is pressed)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "live: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if c.IsSet("model") {
		cfg.Model = c.String("model")
	}
	if c.IsSet("source") {
		cfg.Live.Source = c.String("source")
	}
	if c.IsSet("conf") {
		cfg.Confidence = float32(c.Float64("conf"))
	}
	if c.IsSet("max-frames") {
		cfg.Live.MaxFrames = c.Int("max-frames")
	}
	cfg.Debug = cfg.Debug || c.Bool("debug")
	if err := cfg.Validate(); err != nil {
		return err
	}

	input, err := parseSource(cfg.Live.Source)
	if err != nil {
		return err
	}
	if err := common.CheckFile("model", cfg.Model); err != nil {
		return err
	}
	classes, err := cfg.ClassSet()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("live", cfg.Debug)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer logger.Sync() //nolint:errcheck

	engine, err := runner.LoadEngine(cfg, classes, logger)
	if err != nil {
		return err
	}
	defer closeEngine(engine, logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return loop(ctx, cfg, input, engine, logger)
}

func loop(ctx context.Context, cfg config.Config, input InputConfig, engine inference.Engine, logger *zap.Logger) error {
	capture, err := gocv.OpenVideoCapture(input.Device())
	if err != nil {
		return errors.Wrapf(err, "open source %v", input.Device())
	}
	defer capture.Close()

	window := gocv.NewWindow(cfg.Live.Window)
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	annotator := images.NewAnnotator()
	sw := profiler.NewStopwatch()

	// FPS tracking variables
	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	logger.Info("start reading", zap.Any("source", input.Device()))
	for n := 0; cfg.Live.MaxFrames == 0 || n < cfg.Live.MaxFrames; n++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if ok := capture.Read(&frame); !ok {
			if input.Type == InputCamera {
				return errors.Errorf("cannot read device %v", input.Device())
			}
			logger.Info("end of stream", zap.Int("frames", n))
			return nil
		}
		if frame.Empty() {
			continue
		}

		// Update FPS calculation every second.
		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
		}

		img, err := frame.ToImage()
		if err != nil {
			return &common.InferenceError{Stage: "decode", Err: err}
		}
		done := sw.StartOperation(runner.StageInfer)
		res, err := engine.Predict(ctx, img)
		done()
		if err != nil {
			return err
		}

		summary := models.Summarize(res.Labels())
		annotator.Draw(&frame, res.Detections)
		drawStatus(&frame, fmt.Sprintf("FPS: %.1f  %s", fps, summary))
		logger.Debug("frame",
			zap.Int("detections", len(res.Detections)),
			zap.Stringer("cash", summary),
			zap.Float64("fps", fps),
		)

		window.IMShow(frame)
		if window.WaitKey(1) >= 0 {
			break
		}
	}

	if infer, ok := sw.Get(runner.StageInfer); ok {
		logger.Info("inference timings",
			zap.Int64("frames", infer.Count),
			zap.Duration("avg", infer.Average()),
			zap.Duration("min", infer.MinTime),
			zap.Duration("max", infer.MaxTime),
		)
	}
	return nil
}

// closeEngine releases the engine, logging a failure instead of dropping it.
func closeEngine(engine inference.Engine, logger *zap.Logger) {
	if err := engine.Close(); err != nil {
		logger.Warn("close engine", zap.Error(err))
	}
}

// drawStatus writes a line of text on a dark band at the top of img.
func drawStatus(img *gocv.Mat, text string) {
	const scale, thickness = 0.7, 2
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, scale, thickness)
	gocv.Rectangle(img, image.Rect(0, 0, size.X+20, size.Y+20), color.RGBA{A: 255}, -1)
	gocv.PutText(img, text, image.Pt(10, size.Y+10), gocv.FontHersheySimplex, scale,
		color.RGBA{R: 255, G: 255, B: 255, A: 255}, thickness)
}
