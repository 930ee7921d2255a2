package images

import (
	"crypto/sha256"
	"encoding/hex"

	"gocv.io/x/gocv"
)

// matChecksum returns a hex SHA-256 of the Mat's pixel data, or "empty".
func matChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}
	sum := sha256.Sum256(mat.ToBytes())
	return hex.EncodeToString(sum[:])
}
