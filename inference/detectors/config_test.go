package detectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/models"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float32(0.4), cfg.ConfidenceThreshold)
	assert.Equal(t, 640, cfg.InputShape.X)
	assert.True(t, cfg.Letterbox)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative confidence", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"iou above one", func(c *Config) { c.NMS.IoUThreshold = 2 }},
		{"cross class iou negative", func(c *Config) { c.NMS.CrossClassIoUThreshold = -1 }},
		{"negative input shape", func(c *Config) { c.InputShape.X = -640 }},
		{"negative min box", func(c *Config) { c.MinBoxSize = -1 }},
		{"zero area ratio", func(c *Config) { c.MaxAreaRatio = 0 }},
		{"unknown backend", func(c *Config) { c.Provider.Backend = "tpu" }},
		{"unknown optimization", func(c *Config) { c.Provider.Optimization.GraphOptimization = "max" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewDetectorMissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.onnx")

	_, err := NewDetector(path, models.BanknoteClasses, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrFileNotFound))
	assert.False(t, errors.Is(err, common.ErrModelLoad))
}

func TestNewDetectorInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.onnx")
	require.NoError(t, os.WriteFile(path, []byte("not a model"), 0o644))

	cfg := DefaultConfig()
	cfg.RelevantClasses = []string{"billete_500"}

	_, err := NewDetector(path, models.BanknoteClasses, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrModelLoad))

	var mle *common.ModelLoadError
	require.True(t, errors.As(err, &mle))
	assert.Equal(t, path, mle.Path)
}

func TestResultLabels(t *testing.T) {
	r := &Result{Detections: []Detection{{Label: "billete_1000"}, {Label: "billete_5000"}}}
	assert.Equal(t, []string{"billete_1000", "billete_5000"}, r.Labels())
}

func TestDetectorClasses(t *testing.T) {
	classes := models.NewClassSet("billetes", "billete_1000", "billete_2000")
	d := &Detector{classes: classes}
	assert.Same(t, classes, d.Classes())
}
