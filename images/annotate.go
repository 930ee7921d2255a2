// Package images - Drawing, decoding and saving of detection images.
package images

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/models"
)

// DefaultOutputDir is where annotated images are written unless configured
// otherwise.
var DefaultOutputDir = filepath.Join("runs", "detect", "predict")

// OutputPath returns the path the annotated copy of input is written to:
// the input's base name inside dir.
func OutputPath(dir, input string) string {
	return filepath.Join(dir, filepath.Base(input))
}

// Annotator draws detections onto BGR images.
type Annotator struct {
	// BoxThickness is the outline width in pixels.
	BoxThickness int
	// FontScale scales the Hershey font used for labels.
	FontScale float64
	// FontThickness is the stroke width of label text.
	FontThickness int
	// ConfidenceBar draws a bar in the bottom right corner of each box
	// whose filled length is the confidence.
	ConfidenceBar bool
}

// NewAnnotator returns an annotator with the default drawing style.
func NewAnnotator() *Annotator {
	return &Annotator{
		BoxThickness:  3,
		FontScale:     0.8,
		FontThickness: 2,
		ConfidenceBar: true,
	}
}

// Label returns the caption drawn above a detection, e.g. "$5000 (87%)".
func Label(d *common.BoundingBox) string {
	return fmt.Sprintf("%s (%d%%)", models.FormatDenomination(d.Label), int(d.Confidence*100))
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	grey  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Draw renders every detection onto img in place.
func (a *Annotator) Draw(img *gocv.Mat, detections []common.BoundingBox) {
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	for i := range detections {
		d := &detections[i]
		rect := d.ToRect().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		c := models.DenominationColor(d.Label)

		gocv.Rectangle(img, rect, c, a.BoxThickness)
		a.drawLabel(img, rect, Label(d), c)
		if a.ConfidenceBar {
			drawConfidenceBar(img, rect, d.Confidence, c)
		}
	}
}

// drawLabel draws text on a filled background just above rect, or just
// inside it when there is no room above.
func (a *Annotator) drawLabel(img *gocv.Mat, rect image.Rectangle, text string, c color.RGBA) {
	const pad = 4
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, a.FontScale, a.FontThickness)

	top := rect.Min.Y - size.Y - 2*pad
	if top < 0 {
		top = rect.Min.Y
	}
	bg := image.Rect(rect.Min.X, top, rect.Min.X+size.X+2*pad, top+size.Y+2*pad)
	gocv.Rectangle(img, bg, c, -1)
	gocv.PutText(img, text, image.Pt(bg.Min.X+pad, bg.Max.Y-pad), gocv.FontHersheySimplex,
		a.FontScale, white, a.FontThickness)
}

// drawConfidenceBar draws a grey track with a filled portion proportional
// to confidence, inset in the bottom right corner of rect.
func drawConfidenceBar(img *gocv.Mat, rect image.Rectangle, confidence float32, c color.RGBA) {
	const (
		inset  = 8
		width  = 100
		height = 8
	)
	w := min(width, rect.Dx()-2*inset)
	if w <= 0 || rect.Dy() < height+2*inset {
		return
	}
	track := image.Rect(rect.Max.X-inset-w, rect.Max.Y-inset-height, rect.Max.X-inset, rect.Max.Y-inset)
	gocv.Rectangle(img, track, grey, -1)

	filled := int(float32(w) * max(0, min(confidence, 1)))
	if filled > 0 {
		gocv.Rectangle(img, image.Rect(track.Min.X, track.Min.Y, track.Min.X+filled, track.Max.Y), c, -1)
	}
	gocv.Rectangle(img, track, white, 1)
}

// Save writes img to path, creating parent directories.
//
// Arguments:
//   - img: The image to write.
//   - path: The destination. The extension selects the encoder.
//
// Returns:
//   - string: The path written, identical to path.
//   - error: A *common.SaveError on failure.
func Save(img gocv.Mat, path string) (string, error) {
	if _, err := FormatFromPath(path); err != nil {
		return "", &common.SaveError{Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &common.SaveError{Path: path, Err: errors.Wrap(err, "create output directory")}
	}
	if !gocv.IMWrite(path, img) {
		return "", &common.SaveError{Path: path, Err: errors.New("encoder rejected the image")}
	}
	return path, nil
}

// Annotate draws detections onto a copy of img and saves it to path.
//
// Returns:
//   - string: The path written.
//   - error: A *common.SaveError on failure.
func (a *Annotator) Annotate(img gocv.Mat, detections []common.BoundingBox, path string) (string, error) {
	canvas := img.Clone()
	defer canvas.Close()

	a.Draw(&canvas, detections)
	return Save(canvas, path)
}
