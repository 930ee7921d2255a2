package common

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBoundingBoxString verifies that bounding box string formatting works correctly.
func TestBoundingBoxString(t *testing.T) {
	tests := []struct {
		name     string
		box      BoundingBox
		expected string
	}{
		{
			name: "banknote with high confidence",
			box: BoundingBox{
				Label:      "billete_1000",
				Confidence: 0.95,
				X1:         100.123,
				Y1:         200.456,
				X2:         300.789,
				Y2:         400.012,
			},
			expected: "Object billete_1000 (confidence 0.950000): (100.12, 200.46), (300.79, 400.01)",
		},
		{
			name: "box outside the frame",
			box: BoundingBox{
				Label:      "billete_20000",
				Confidence: 0.001,
				X1:         -10,
				Y1:         -10,
				X2:         10,
				Y2:         10,
			},
			expected: "Object billete_20000 (confidence 0.001000): (-10.00, -10.00), (10.00, 10.00)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.box.String())
		})
	}
}

func TestBoundingBoxIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     BoundingBox
		expected float32
	}{
		{
			name:     "identical boxes",
			a:        BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100},
			b:        BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100},
			expected: 1,
		},
		{
			name:     "partial overlap",
			a:        BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100},
			b:        BoundingBox{X1: 50, Y1: 50, X2: 150, Y2: 150},
			expected: 2500.0 / 17500.0,
		},
		{
			name:     "disjoint boxes",
			a:        BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10},
			b:        BoundingBox{X1: 20, Y1: 20, X2: 30, Y2: 30},
			expected: 0,
		},
		{
			name:     "touching edges",
			a:        BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10},
			b:        BoundingBox{X1: 10, Y1: 0, X2: 20, Y2: 10},
			expected: 0,
		},
		{
			name:     "empty boxes",
			a:        BoundingBox{},
			b:        BoundingBox{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.a.IoU(&tt.b), 1e-5)
			assert.InDelta(t, tt.expected, tt.b.IoU(&tt.a), 1e-5, "IoU must be symmetric")
		})
	}
}

func TestBoundingBoxToRect(t *testing.T) {
	box := BoundingBox{X1: 200.5, Y1: 300.5, X2: 100.5, Y2: 100.5}
	assert.Equal(t, image.Rect(100, 100, 200, 300), box.ToRect())
}

func TestBoundingBoxClamp(t *testing.T) {
	box := BoundingBox{X1: -5, Y1: -1, X2: 700, Y2: 300}
	box.Clamp(640, 480)

	assert.Equal(t, float32(0), box.X1)
	assert.Equal(t, float32(0), box.Y1)
	assert.Equal(t, float32(640), box.X2)
	assert.Equal(t, float32(300), box.Y2)
	assert.Equal(t, float32(640*300), box.Area())
}
