package images

import (
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cashvision/common"
)

// Read decodes the image at path as BGR. The caller closes the Mat, which
// is valid but empty on error.
//
// Returns:
//   - gocv.Mat: The decoded image.
//   - error: A *common.DecodeError when the file is missing or undecodable.
func Read(path string) (gocv.Mat, error) {
	if err := common.CheckFile("image", path); err != nil {
		return gocv.NewMat(), &common.DecodeError{Path: path, Err: err}
	}
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, &common.DecodeError{Path: path}
	}
	return img, nil
}
