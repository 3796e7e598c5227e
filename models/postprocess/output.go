package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// geometryChannels is the number of leading channels holding box geometry
// (center-x, center-y, width, height); class score channels follow.
const geometryChannels = 4

// RawOutput is a validated, read-only view over a detection model's output
// tensor.
//
// The tensor layout is [channels][anchors] flattened row-major, i.e. the
// value for channel c at anchor a lives at data[c*anchors + a]. Channel 0-3
// carry box geometry, channels 4..4+numClasses-1 carry per-class scores.
type RawOutput struct {
	data     []float32
	channels int
	anchors  int
}

// NewRawOutput wraps a flat output buffer after checking that its size is
// consistent with the declared class count and anchor count. A mismatched
// shape is a caller contract violation and fails fast rather than producing
// garbage detections.
//
// Arguments:
//   - data: The flattened [channels][anchors] output buffer.
//   - numClasses: Number of class-score channels following the 4 geometry
//     channels.
//   - anchors: Number of anchor positions the model predicts.
//
// Returns:
//   - *RawOutput: The validated view.
//   - error: A shape-violation error if the buffer does not match.
func NewRawOutput(data []float32, numClasses, anchors int) (*RawOutput, error) {
	if numClasses < 0 {
		return nil, errors.Errorf("invalid class count %d", numClasses)
	}
	if anchors <= 0 {
		return nil, errors.Errorf("invalid anchor count %d", anchors)
	}
	channels := geometryChannels + numClasses
	if len(data) != channels*anchors {
		return nil, errors.Errorf(
			"output shape mismatch: have %d values, want %d (%d channels x %d anchors)",
			len(data), channels*anchors, channels, anchors)
	}
	return &RawOutput{data: data, channels: channels, anchors: anchors}, nil
}

// RawOutputFromDense wraps a dense tensor shaped (channels, anchors), or
// (1, channels, anchors) with a leading batch dimension, as a RawOutput.
//
// Arguments:
//   - t: The dense float32 tensor produced by the inference engine.
//   - numClasses: Number of class-score channels expected.
//
// Returns:
//   - *RawOutput: The validated view.
//   - error: An error if the tensor is not float32 or its shape disagrees
//     with numClasses.
func RawOutputFromDense(t *tensor.Dense, numClasses int) (*RawOutput, error) {
	shape := t.Shape()
	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return nil, errors.Errorf("output tensor must be 2-dimensional, got shape %v", t.Shape())
	}

	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("output tensor must hold float32 values, got %v", t.Dtype())
	}

	if want := geometryChannels + numClasses; shape[0] != want {
		return nil, errors.Errorf(
			"output tensor has %d channels, want %d (4 geometry + %d classes)",
			shape[0], want, numClasses)
	}

	return NewRawOutput(data, numClasses, shape[1])
}

// Anchors returns the number of anchor positions.
func (o *RawOutput) Anchors() int {
	return o.anchors
}

// Channels returns the total channel count (geometry + classes).
func (o *RawOutput) Channels() int {
	return o.channels
}

// NumClasses returns the number of class-score channels.
func (o *RawOutput) NumClasses() int {
	return o.channels - geometryChannels
}

// At returns the value for channel c at anchor a. Bounds are the caller's
// responsibility; the decoder's loops are the hot path.
func (o *RawOutput) At(c, a int) float32 {
	return o.data[c*o.anchors+a]
}
