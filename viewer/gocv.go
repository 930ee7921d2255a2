package viewer

import (
	"context"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// pollMillis is how long each WaitKey call blocks before the context and
// window state are checked again.
const pollMillis = 100

// GoCVViewer shows the image in an OpenCV window.
type GoCVViewer struct {
	opts Options
}

// Show decodes path, opens a window and blocks until a key is pressed, the
// window is closed or ctx is done. The window is always closed on return.
func (v *GoCVViewer) Show(ctx context.Context, path string) error {
	img, err := Decode(path)
	defer img.Close()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	window := gocv.NewWindow(v.opts.Title)
	defer window.Close()

	window.IMShow(img)
	v.opts.Logger.Info("showing result, press any key to close", zap.String("path", path))

	for {
		if key := window.WaitKey(pollMillis); key >= 0 {
			v.opts.Logger.Debug("key pressed", zap.Int("key", key))
			return nil
		}
		if window.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
