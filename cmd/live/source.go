package main

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/cashvision/common"
)

// Supported video file extensions.
var supportedVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// InputType represents the type of input being processed.
type InputType int

const (
	InputCamera InputType = iota
	InputVideo
	InputStream
)

// InputConfig holds the input configuration.
type InputConfig struct {
	Type     InputType
	Path     string
	DeviceID int
}

// Device returns the argument for gocv.OpenVideoCapture.
func (c InputConfig) Device() interface{} {
	if c.Type == InputCamera {
		return c.DeviceID
	}
	return c.Path
}

// parseSource interprets a live source: a camera index, a stream URL or a
// video file.
func parseSource(source string) (InputConfig, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return InputConfig{Type: InputCamera}, nil
	}
	if id, err := strconv.Atoi(source); err == nil {
		if id < 0 {
			return InputConfig{}, errors.Errorf("invalid camera index %d", id)
		}
		return InputConfig{Type: InputCamera, DeviceID: id}, nil
	}
	if strings.Contains(source, "://") {
		return InputConfig{Type: InputStream, Path: source}, nil
	}
	if err := validateFile(source, supportedVideoExtensions); err != nil {
		return InputConfig{}, err
	}
	return InputConfig{Type: InputVideo, Path: source}, nil
}

// validateFile checks if the file exists and has a supported extension.
func validateFile(path string, supportedExtensions []string) error {
	if err := common.CheckFile("video", path); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range supportedExtensions {
		if ext == s {
			return nil
		}
	}
	return errors.Errorf("unsupported video format %q (supported: %s)", ext, strings.Join(supportedExtensions, ", "))
}
