// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/cashvision/common"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap threshold for suppression within a class.
	ClassAware   bool    // If true, IoUThreshold only applies within the same class.
	// CrossClassIoUThreshold suppresses overlapping boxes of different
	// classes when ClassAware is set. Zero disables the cross-class pass.
	CrossClassIoUThreshold float32
	BestPerClass           bool // Keep only the highest scoring box of each class.
}

// DefaultNMSConfig returns the thresholds used for banknote detection.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{
		IoUThreshold:           0.45,
		ClassAware:             true,
		CrossClassIoUThreshold: 0.5,
	}
}

// SortByConfidence orders detections by descending confidence. Ties keep
// their input order.
func SortByConfidence(detections []common.BoundingBox) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
}

// ApplyNMS filters overlapping detections using greedy Non-Maximum Suppression.
//
// Arguments:
//   - detections: Candidate detections in any order. The slice is sorted in place.
//   - config: NMS configuration. A nil config uses DefaultNMSConfig.
//
// Returns:
//   - The surviving detections in descending confidence order, or nil when
//     there are none.
func ApplyNMS(detections []common.BoundingBox, config *NMSConfig) []common.BoundingBox {
	if len(detections) == 0 {
		return nil
	}
	if config == nil {
		config = DefaultNMSConfig()
	}

	SortByConfidence(detections)

	kept := ApplyGreedyNMS(detections, config)
	if config.BestPerClass {
		kept = bestPerClass(kept)
	}
	return kept
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Arguments:
//   - detections: Slice of detections sorted by descending confidence.
//   - config: Thresholds for same-class and cross-class suppression.
//
// Returns:
//   - Filtered slice of detections.
func ApplyGreedyNMS(detections []common.BoundingBox, config *NMSConfig) []common.BoundingBox {
	n := len(detections)
	if n == 0 {
		return nil
	}

	filtered := make([]common.BoundingBox, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := detections[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if suppresses(&anchor, &detections[j], config) {
				used[j] = true
			}
		}
	}

	return filtered
}

func suppresses(anchor, other *common.BoundingBox, config *NMSConfig) bool {
	iou := anchor.IoU(other)
	if !config.ClassAware || anchor.ClassID == other.ClassID {
		return iou > config.IoUThreshold
	}
	return config.CrossClassIoUThreshold > 0 && iou > config.CrossClassIoUThreshold
}

// bestPerClass keeps the first (highest scoring) detection of each class.
func bestPerClass(detections []common.BoundingBox) []common.BoundingBox {
	seen := make(map[int]bool, len(detections))
	out := detections[:0]
	for _, d := range detections {
		if seen[d.ClassID] {
			continue
		}
		seen[d.ClassID] = true
		out = append(out, d)
	}
	return out
}
