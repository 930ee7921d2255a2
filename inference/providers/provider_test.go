package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderBackend
		wantErr bool
	}{
		{"", CPUProviderBackend, false},
		{"cpu", CPUProviderBackend, false},
		{" CUDA ", CUDAProviderBackend, false},
		{"coreml", CoreMLProviderBackend, false},
		{"openvino", OpenVINOProviderBackend, false},
		{"tensorrt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProvider(t *testing.T) {
	for _, b := range Backends() {
		cfg := DefaultConfig()
		cfg.Backend = b

		p, err := NewProvider(cfg)
		require.NoError(t, err)
		assert.Equal(t, b, p.Backend())
		assert.NotNil(t, p.Options())
	}

	_, err := NewProvider(Config{Backend: "dnnl"})
	assert.Error(t, err)
}

func TestCUDAOptionsToMap(t *testing.T) {
	m := CUDAOptions{DeviceID: 1, DoCopyInDefaultStream: true}.ToMap()
	assert.Equal(t, map[string]string{"device_id": "1", "do_copy_in_default_stream": "1"}, m)

	m = CUDAOptions{GPUMemLimit: 2 << 30, CudnnConvAlgoSearch: "HEURISTIC"}.ToMap()
	assert.Equal(t, "2147483648", m["gpu_mem_limit"])
	assert.Equal(t, "HEURISTIC", m["cudnn_conv_algo_search"])
	assert.NotContains(t, m, "arena_extend_strategy")
}

func TestOpenVINOOptionsToMap(t *testing.T) {
	m := OpenVINOOptions{DeviceType: "GPU", Precision: "FP16", NumOfThreads: 4}.ToMap()
	assert.Equal(t, map[string]string{
		"device_type":            "GPU",
		"precision":              "FP16",
		"num_of_threads":         "4",
		"disable_dynamic_shapes": "false",
	}, m)
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001|0x004), CoreMLOptions{CPUOnly: true, OnlyANE: true}.Flags())
	assert.Equal(t, uint32(0x010), CoreMLOptions{MLProgram: true}.Flags())
}

func TestGraphOptimizationLevel(t *testing.T) {
	tests := map[string]ort.GraphOptimizationLevel{
		"":         ort.GraphOptimizationLevelEnableExtended,
		"disable":  ort.GraphOptimizationLevelDisableAll,
		"basic":    ort.GraphOptimizationLevelEnableBasic,
		"extended": ort.GraphOptimizationLevelEnableExtended,
		"ALL":      ort.GraphOptimizationLevelEnableAll,
	}
	for name, want := range tests {
		got, err := OptimizationConfig{GraphOptimization: name}.GraphOptimizationLevel()
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	assert.Error(t, OptimizationConfig{GraphOptimization: "max"}.Validate())
	assert.Error(t, OptimizationConfig{IntraOpNumThreads: -1}.Validate())
	assert.NoError(t, DefaultOptimizationConfig().Validate())
}

func TestResolveShape(t *testing.T) {
	got, err := ResolveShape(ort.NewShape(-1, 3, 640, 640))
	require.NoError(t, err)
	assert.Equal(t, ort.NewShape(1, 3, 640, 640), got)

	got, err = ResolveShape(ort.NewShape(1, 9, 8400))
	require.NoError(t, err)
	assert.Equal(t, ort.NewShape(1, 9, 8400), got)

	_, err = ResolveShape(ort.NewShape(1, 3, -1, -1))
	assert.Error(t, err)

	_, err = ResolveShape(nil)
	assert.Error(t, err)
}

func TestGetSharedLibPath(t *testing.T) {
	p, err := GetSharedLibPath("/opt/onnxruntime/lib/libonnxruntime.so.1.21.0")
	require.NoError(t, err)
	assert.Equal(t, "/opt/onnxruntime/lib/libonnxruntime.so.1.21.0", p)

	p, err = GetSharedLibPath("")
	require.NoError(t, err)
	assert.NotEmpty(t, p)
}
