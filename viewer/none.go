package viewer

import (
	"context"

	"go.uber.org/zap"
)

// NoneViewer validates that the image decodes and returns immediately.
type NoneViewer struct {
	opts Options
}

// Show decodes path and logs its size.
func (v *NoneViewer) Show(ctx context.Context, path string) error {
	img, err := Decode(path)
	defer img.Close()
	if err != nil {
		return err
	}
	v.opts.Logger.Info("result saved", zap.String("path", path),
		zap.Int("width", img.Cols()), zap.Int("height", img.Rows()))
	return ctx.Err()
}
