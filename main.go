// Command cashvision detects banknotes in a picture, saves the annotated
// result and shows it until a key is pressed.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/cashvision/config"
	"github.com/nvr-ai/cashvision/inference/providers"
	"github.com/nvr-ai/cashvision/logging"
	"github.com/nvr-ai/cashvision/models"
	"github.com/nvr-ai/cashvision/runner"
)

const (
	// Flags.
	flagConfig    = "config"
	flagModel     = "model"
	flagImage     = "image"
	flagOutputDir = "output-dir"
	flagConf      = "conf"
	flagIoU       = "iou"
	flagClasses   = "classes"
	flagOnly      = "only"
	flagViewer    = "viewer"
	flagORTLib    = "ort-lib"
	flagProvider  = "provider"
	flagDebug     = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "cashvision: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	defaults := config.Default()

	return &cli.App{
		Name:  "cashvision",
		Usage: "detect banknotes in a picture and show the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Value:   defaults.Model,
				Usage:   "YOLO model exported to ONNX",
			},
			&cli.StringFlag{
				Name:    flagImage,
				Aliases: []string{"i"},
				Value:   defaults.Image,
				Usage:   "picture to analyse",
			},
			&cli.StringFlag{
				Name:    flagOutputDir,
				Aliases: []string{"o"},
				Value:   defaults.OutputDir,
				Usage:   "directory the annotated picture is written to",
			},
			&cli.Float64Flag{
				Name:  flagConf,
				Value: float64(defaults.Confidence),
				Usage: "minimum detection confidence",
			},
			&cli.Float64Flag{
				Name:  flagIoU,
				Value: float64(defaults.IoU),
				Usage: "NMS IoU threshold",
			},
			&cli.StringFlag{
				Name:  flagClasses,
				Usage: "dataset `YAML` with the class names (default: built-in banknote classes)",
			},
			&cli.StringSliceFlag{
				Name:  flagOnly,
				Usage: "only report these class names (repeat or comma separate)",
			},
			&cli.StringFlag{
				Name:  flagViewer,
				Value: defaults.Viewer,
				Usage: "result viewer: gocv, fyne or none",
			},
			&cli.StringFlag{
				Name:  flagORTLib,
				Usage: "path to the ONNX Runtime shared library",
			},
			&cli.StringFlag{
				Name:  flagProvider,
				Value: string(defaults.Provider.Backend),
				Usage: "execution provider: cpu, cuda, coreml or openvino",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: detectAction,
		Commands: []*cli.Command{
			{
				Name:   "classes",
				Usage:  "print the class set and the denomination of each class",
				Action: classesAction,
			},
		},
	}
}

// loadConfig reads the optional config file and applies the flags that were
// set explicitly on top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if c.IsSet(flagModel) {
		cfg.Model = c.String(flagModel)
	}
	if c.IsSet(flagImage) {
		cfg.Image = c.String(flagImage)
	}
	if c.IsSet(flagOutputDir) {
		cfg.OutputDir = c.String(flagOutputDir)
	}
	if c.IsSet(flagConf) {
		cfg.Confidence = float32(c.Float64(flagConf))
	}
	if c.IsSet(flagIoU) {
		cfg.IoU = float32(c.Float64(flagIoU))
	}
	if c.IsSet(flagClasses) {
		cfg.Classes = c.String(flagClasses)
	}
	if c.IsSet(flagOnly) {
		cfg.RelevantClasses = c.StringSlice(flagOnly)
	}
	if c.IsSet(flagViewer) {
		cfg.Viewer = c.String(flagViewer)
	}
	if c.IsSet(flagORTLib) {
		cfg.Provider.LibraryPath = c.String(flagORTLib)
	}
	if c.IsSet(flagProvider) {
		backend, err := providers.ParseBackend(c.String(flagProvider))
		if err != nil {
			return cfg, err
		}
		cfg.Provider.Backend = backend
	}
	if c.Bool(flagDebug) {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

func detectAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger("cashvision", cfg.Debug)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, cfg, runner.Deps{Logger: logger})
	if err != nil {
		return err
	}
	logger.Info("done",
		zap.String("output", report.OutputPath),
		zap.Stringer("cash", report.Summary),
	)
	return nil
}

func classesAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	classes, err := cfg.ClassSet()
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "classes: %s\n", classes.Name)
	for i, label := range classes.Labels() {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, label, models.FormatDenomination(label))
	}
	return nil
}
