package common

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Sentinel errors for each failure class of a detection run. Every typed
// error below matches exactly one of them with errors.Is.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrModelLoad    = errors.New("model load failed")
	ErrInference    = errors.New("inference failed")
	ErrSave         = errors.New("save failed")
	ErrDecode       = errors.New("image decode failed")
)

// FileNotFoundError reports a missing input file. Kind names the role of
// the file ("model", "image", "classes").
type FileNotFoundError struct {
	Kind string
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Kind, e.Path)
}

// Is reports whether target is ErrFileNotFound.
func (e *FileNotFoundError) Is(target error) bool { return target == ErrFileNotFound }

// ModelLoadError reports a model file that exists but could not be turned
// into a runnable session.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error        { return e.Err }
func (e *ModelLoadError) Is(target error) bool { return target == ErrModelLoad }

// InferenceError reports a failure while preparing, running or decoding a
// single inference call.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference (%s): %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error        { return e.Err }
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// SaveError reports an annotated image that could not be written.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error        { return e.Err }
func (e *SaveError) Is(target error) bool { return target == ErrSave }

// DecodeError reports an image that is missing or cannot be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s: empty image", e.Path)
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// CheckFile returns a FileNotFoundError when path does not name a regular,
// readable file.
func CheckFile(kind, path string) error {
	if path == "" {
		return &FileNotFoundError{Kind: kind, Path: path}
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &FileNotFoundError{Kind: kind, Path: path}
	}
	return nil
}
