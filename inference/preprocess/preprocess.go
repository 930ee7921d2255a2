// Package preprocess - Converts images into model input tensors.
package preprocess

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PadValue is the grey level used to fill letterbox borders.
const PadValue = 114

// Frame records how an original image was mapped onto the model input, so
// that boxes predicted in input space can be mapped back.
type Frame struct {
	// Original image size in pixels.
	SrcWidth, SrcHeight int
	// Model input size in pixels.
	InputWidth, InputHeight int
	// Scale from original to input pixels on each axis.
	ScaleX, ScaleY float32
	// Border added on the left and top of the resized image.
	PadX, PadY float32
}

// ToOriginal maps a point from model input pixels to original image pixels.
func (f Frame) ToOriginal(x, y float32) (float32, float32) {
	return (x - f.PadX) / f.ScaleX, (y - f.PadY) / f.ScaleY
}

// PrepareInput resizes img to the model input and writes it into dst as
// planar RGB float32 in [0,1] (CHW order).
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination tensor data. Must hold at least 3*width*height floats.
//   - width, height: The model input size.
//   - letterbox: Preserve the aspect ratio and pad with grey. When false the
//     image is stretched to the input size.
//
// Returns:
//   - Frame: The mapping between original and input coordinates.
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, dst []float32, width, height int, letterbox bool) (Frame, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return Frame{}, errors.Errorf("image has no pixels (%dx%d)", srcW, srcH)
	}
	if width <= 0 || height <= 0 {
		return Frame{}, errors.Errorf("invalid input size %dx%d", width, height)
	}

	channelSize := width * height
	if len(dst) < channelSize*3 {
		return Frame{}, errors.Errorf("destination tensor only holds %d floats, needs %d",
			len(dst), channelSize*3)
	}

	f := Frame{SrcWidth: srcW, SrcHeight: srcH, InputWidth: width, InputHeight: height}
	newW, newH := width, height

	if letterbox {
		scale := math32.Min(float32(width)/float32(srcW), float32(height)/float32(srcH))
		newW = clampDim(int(math32.Round(float32(srcW)*scale)), width)
		newH = clampDim(int(math32.Round(float32(srcH)*scale)), height)
		f.ScaleX, f.ScaleY = scale, scale
		f.PadX = float32((width - newW) / 2)
		f.PadY = float32((height - newH) / 2)

		pad := float32(PadValue) / 255.0
		for i := range dst[:channelSize*3] {
			dst[i] = pad
		}
	} else {
		f.ScaleX = float32(width) / float32(srcW)
		f.ScaleY = float32(height) / float32(srcH)
	}

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)
	writePlanes(resized, dst, width, channelSize, int(f.PadX), int(f.PadY))

	return f, nil
}

func clampDim(v, limit int) int {
	if v < 1 {
		return 1
	}
	if v > limit {
		return limit
	}
	return v
}

// writePlanes copies img into the three colour planes of dst at (offX, offY).
func writePlanes(img image.Image, dst []float32, stride, channelSize, offX, offY int) {
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			row := rgba.Pix[y*rgba.Stride:]
			i := (y+offY)*stride + offX
			for x := 0; x < b.Dx(); x++ {
				p := row[x*4 : x*4+3]
				red[i] = float32(p[0]) / 255.0
				green[i] = float32(p[1]) / 255.0
				blue[i] = float32(p[2]) / 255.0
				i++
			}
		}
		return
	}

	for y := 0; y < b.Dy(); y++ {
		i := (y+offY)*stride + offX
		for x := 0; x < b.Dx(); x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			red[i] = float32(c.R) / 255.0
			green[i] = float32(c.G) / 255.0
			blue[i] = float32(c.B) / 255.0
			i++
		}
	}
}
