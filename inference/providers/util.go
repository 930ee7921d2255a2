// Package providers - Utility functions.
package providers

import (
	"runtime"

	"github.com/pkg/errors"
)

// GetSharedLibPath returns the path to the ONNX Runtime shared library.
//
// Arguments:
//   - override: A user supplied path. When set it is returned unchanged.
//
// Returns:
//   - string: The library path. Bare file names are resolved by the dynamic loader.
//   - error: An error if the platform has no known library name.
func GetSharedLibPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "linux":
		return "libonnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}
