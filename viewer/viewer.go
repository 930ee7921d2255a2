// Package viewer shows a saved image in a blocking window until a key is
// pressed.
package viewer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cashvision/images"
	"github.com/nvr-ai/cashvision/logging"
)

// Viewer displays the image stored at path and returns once the user has
// dismissed it. Implementations decode the file before opening any window
// and return a *common.DecodeError when it cannot be read.
type Viewer interface {
	Show(ctx context.Context, path string) error
}

// Kind selects a Viewer implementation.
type Kind string

const (
	// KindGoCV uses an OpenCV HighGUI window.
	KindGoCV Kind = "gocv"
	// KindFyne uses a fyne window.
	KindFyne Kind = "fyne"
	// KindNone only decodes the image. Useful on headless machines.
	KindNone Kind = "none"
)

// Kinds lists the supported viewer kinds.
func Kinds() []Kind {
	return []Kind{KindGoCV, KindFyne, KindNone}
}

// ParseKind converts a user supplied name into a Kind. The empty string
// selects KindGoCV.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KindGoCV, nil
	}
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown viewer %q", name)
}

// Options configures a Viewer.
type Options struct {
	// Title of the window.
	Title  string
	Logger *zap.Logger
}

// DefaultTitle is used when Options.Title is empty.
const DefaultTitle = "Detection result"

// New returns the viewer for kind.
func New(kind Kind, opts Options) (Viewer, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	opts.Logger = logging.OrNop(opts.Logger)

	switch kind {
	case KindGoCV, "":
		return &GoCVViewer{opts: opts}, nil
	case KindFyne:
		return &FyneViewer{opts: opts}, nil
	case KindNone:
		return &NoneViewer{opts: opts}, nil
	}
	return nil, errors.Errorf("unknown viewer %q", kind)
}

// Decode reads the image at path. The caller closes the returned Mat.
//
// Returns:
//   - gocv.Mat: The decoded BGR image.
//   - error: A *common.DecodeError when the file is missing or unreadable.
func Decode(path string) (gocv.Mat, error) {
	return images.Read(path)
}
