package detectors

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/cashvision/common"
	"github.com/nvr-ai/cashvision/inference/preprocess"
	"github.com/nvr-ai/cashvision/models"
)

// Layout describes how a YOLO export arranges its single output tensor.
type Layout int

const (
	// LayoutUnknown is the zero value.
	LayoutUnknown Layout = iota
	// LayoutChannelsFirst is [1, 4+C, N] (YOLOv8 and later): one channel
	// per box attribute, one column per anchor.
	LayoutChannelsFirst
	// LayoutRowMajor is [1, N, 5+C] or [1, N, 4+C] (YOLOv5): one row per anchor.
	LayoutRowMajor
)

func (l Layout) String() string {
	switch l {
	case LayoutChannelsFirst:
		return "channels-first"
	case LayoutRowMajor:
		return "row-major"
	default:
		return "unknown"
	}
}

// OutputFormat is the decoded description of a model output.
type OutputFormat struct {
	Layout Layout
	// Anchors is the number of candidate boxes.
	Anchors int
	// Attributes is the number of values per candidate box.
	Attributes int
	// Objectness is true when attribute 4 is an objectness score.
	Objectness bool
}

func (f OutputFormat) String() string {
	return fmt.Sprintf("%s anchors=%d attributes=%d objectness=%t",
		f.Layout, f.Anchors, f.Attributes, f.Objectness)
}

// DetectLayout infers the output layout from the output shape and the
// number of classes the model was trained on.
//
// Arguments:
//   - shape: The output tensor shape, [1, a, b].
//   - numClasses: The size of the class set.
//
// Returns:
//   - OutputFormat: The layout, anchor count and attribute count.
//   - error: An error if the shape fits neither layout.
func DetectLayout(shape []int64, numClasses int) (OutputFormat, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return OutputFormat{}, errors.Errorf("unsupported output shape %v, want [1, a, b]", shape)
	}
	if numClasses <= 0 {
		return OutputFormat{}, errors.New("class set is empty")
	}
	a, b := int(shape[1]), int(shape[2])
	plain, withObj := 4+numClasses, 5+numClasses

	switch {
	case a == plain && b != plain:
		return OutputFormat{Layout: LayoutChannelsFirst, Anchors: b, Attributes: a}, nil
	case b == withObj:
		return OutputFormat{Layout: LayoutRowMajor, Anchors: a, Attributes: b, Objectness: true}, nil
	case b == plain:
		return OutputFormat{Layout: LayoutRowMajor, Anchors: a, Attributes: b}, nil
	case a == withObj:
		return OutputFormat{Layout: LayoutChannelsFirst, Anchors: b, Attributes: a, Objectness: true}, nil
	}
	return OutputFormat{}, errors.Errorf("output shape %v does not match %d classes", shape, numClasses)
}

// DecodeOptions filters raw candidates while decoding.
type DecodeOptions struct {
	ConfidenceThreshold float32
	MinBoxSize          float32
	MaxAreaRatio        float32
	Classes             *models.ClassSet
	// Relevant restricts decoding to these class indices. Nil keeps all.
	Relevant map[int]bool
}

// rows returns the output as one row of Attributes values per anchor.
func rows(data []float32, format OutputFormat) ([]float32, error) {
	n := format.Anchors * format.Attributes
	if len(data) < n {
		return nil, errors.Errorf("output holds %d values, want %d", len(data), n)
	}
	if format.Layout == LayoutRowMajor {
		return data[:n], nil
	}

	// The backing slice is copied so the session's output tensor is left untouched.
	backing := make([]float32, n)
	copy(backing, data[:n])
	t := tensor.New(tensor.WithShape(format.Attributes, format.Anchors), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	out, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("unexpected tensor data type %T", t.Data())
	}
	return out, nil
}

// Decode converts a raw model output into detections in original image
// pixels. Detections are neither sorted nor suppressed.
//
// Arguments:
//   - data: The raw output tensor data.
//   - format: The output layout, see DetectLayout.
//   - frame: The mapping produced when the input was prepared.
//   - opts: Thresholds and the class set.
//
// Returns:
//   - []common.BoundingBox: Every candidate that passed the filters.
//   - error: An error if the output is shorter than the format requires.
func Decode(data []float32, format OutputFormat, frame preprocess.Frame, opts DecodeOptions) ([]common.BoundingBox, error) {
	values, err := rows(data, format)
	if err != nil {
		return nil, err
	}
	classes := opts.Classes
	if classes == nil {
		classes = models.BanknoteClasses
	}

	first := 4
	if format.Objectness {
		first = 5
	}
	imgW, imgH := float32(frame.SrcWidth), float32(frame.SrcHeight)
	imgArea := imgW * imgH

	var out []common.BoundingBox
	for i := 0; i < format.Anchors; i++ {
		row := values[i*format.Attributes : (i+1)*format.Attributes]

		classID, best := 0, float32(math32.Inf(-1))
		for c, s := range row[first:] {
			if s > best {
				classID, best = c, s
			}
		}
		if opts.Relevant != nil && !opts.Relevant[classID] {
			continue
		}

		conf := best
		if format.Objectness {
			// Class scores above 1 mean the export skipped the sigmoid; fall
			// back to objectness alone.
			if best > 1 {
				conf = row[4]
			} else {
				conf = row[4] * best
			}
		}
		if conf < opts.ConfidenceThreshold {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		if cx <= 1 && cy <= 1 && w <= 1 && h <= 1 {
			// Normalized to the model input.
			cx *= float32(frame.InputWidth)
			w *= float32(frame.InputWidth)
			cy *= float32(frame.InputHeight)
			h *= float32(frame.InputHeight)
		}

		box := common.BoundingBox{
			Label:      classes.Label(classID),
			ClassID:    classID,
			Confidence: conf,
		}
		box.X1, box.Y1 = frame.ToOriginal(cx-w/2, cy-h/2)
		box.X2, box.Y2 = frame.ToOriginal(cx+w/2, cy+h/2)
		box.Clamp(imgW, imgH)

		if box.Width() < opts.MinBoxSize || box.Height() < opts.MinBoxSize {
			continue
		}
		if opts.MaxAreaRatio > 0 && box.Area()/imgArea > opts.MaxAreaRatio {
			continue
		}
		out = append(out, box)
	}
	return out, nil
}
