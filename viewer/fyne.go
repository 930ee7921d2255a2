package viewer

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/cashvision/common"
)

// maxFyneSize bounds the initial window size; larger images are scaled
// down to fit.
const maxFyneSize = 1280

// FyneViewer shows the image in a fyne window.
type FyneViewer struct {
	opts Options
}

// Show decodes path, opens a window and blocks until a key is typed, the
// window is closed or ctx is done.
func (v *FyneViewer) Show(ctx context.Context, path string) error {
	mat, err := Decode(path)
	defer mat.Close()
	if err != nil {
		return err
	}
	img, err := mat.ToImage()
	if err != nil {
		return &common.DecodeError{Path: path, Err: errors.Wrap(err, "convert to image")}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a := app.New()
	w := a.NewWindow(v.opts.Title)

	picture := canvas.NewImageFromImage(img)
	picture.FillMode = canvas.ImageFillContain
	picture.SetMinSize(fitSize(img.Bounds().Dx(), img.Bounds().Dy(), maxFyneSize))
	w.SetContent(picture)

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		v.opts.Logger.Debug("key pressed", zap.String("key", string(ev.Name)))
		a.Quit()
	})
	w.Canvas().SetOnTypedRune(func(rune) { a.Quit() })

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(a.Quit)
		case <-done:
		}
	}()

	v.opts.Logger.Info("showing result, press any key to close", zap.String("path", path))
	w.ShowAndRun()
	return ctx.Err()
}

// fitSize scales w x h down so that neither side exceeds limit.
func fitSize(w, h, limit int) fyne.Size {
	fw, fh := float32(w), float32(h)
	if longest := max(fw, fh); longest > float32(limit) {
		scale := float32(limit) / longest
		fw, fh = fw*scale, fh*scale
	}
	return fyne.NewSize(fw, fh)
}
