package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-vision/images"
)

// DecodeConfig carries the caller-supplied parameters for one decode pass.
// It is immutable per call; multiple model configurations (e.g. 320 vs 640
// input size) can coexist by holding separate configs.
type DecodeConfig struct {
	// ConfidenceThreshold is the minimum best-class score for an anchor to
	// become a candidate detection.
	ConfidenceThreshold float32 `json:"confidence_threshold"`

	// Classes is the ordered label table sourced from model metadata. The
	// model must emit one score channel per entry.
	Classes []string `json:"classes"`

	// InputSize is the square side length the network was fed.
	InputSize int `json:"input_size"`

	// OriginalWidth and OriginalHeight are the pre-resize dimensions of the
	// image the tensor was produced from, needed to project model-space
	// geometry back onto the original aspect ratio.
	OriginalWidth  int `json:"original_width"`
	OriginalHeight int `json:"original_height"`
}

// Validate reports contract violations in the config. An empty class list is
// not a violation; it is a legitimate degenerate state handled by Decode.
func (c *DecodeConfig) Validate() error {
	if c.InputSize <= 0 {
		return errors.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.OriginalWidth <= 0 || c.OriginalHeight <= 0 {
		return errors.Errorf("original dimensions must be positive, got %dx%d",
			c.OriginalWidth, c.OriginalHeight)
	}
	return nil
}

// Decode transforms a raw output tensor into candidate detections.
//
// For every anchor it reads center-form geometry from channels 0-3, projects
// it from model-input space into original-image pixel space with independent
// per-axis scale factors (originalWidth/inputSize, originalHeight/inputSize),
// and selects the best class by a strict left-to-right argmax over the score
// channels, so the lowest index wins ties. Anchors whose best score is below
// the confidence threshold are dropped silently. Surviving boxes are
// converted to corner form, normalized by the original dimensions, and
// clamped to [0,1].
//
// The pass is purely functional over its inputs and runs in
// O(anchors x classes).
//
// Arguments:
//   - raw: The validated output tensor view.
//   - cfg: Thresholds, labels, and coordinate-frame dimensions.
//
// Returns:
//   - []Result: Candidate detections, in anchor order. Empty (never an
//     error) when no classes are configured or nothing passes the threshold.
//   - error: A contract violation: a nil tensor, non-positive dimensions, or
//     a tensor whose class channels disagree with the label table.
func Decode(raw *RawOutput, cfg DecodeConfig) ([]Result, error) {
	if raw == nil {
		return nil, errors.New("nil output tensor")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// No classes configured: a degenerate operating state, not an error.
	if len(cfg.Classes) == 0 {
		return nil, nil
	}

	numClasses := len(cfg.Classes)
	if raw.NumClasses() != numClasses {
		return nil, errors.Errorf(
			"output tensor has %d class channels, label table has %d",
			raw.NumClasses(), numClasses)
	}

	scaleX := float32(cfg.OriginalWidth) / float32(cfg.InputSize)
	scaleY := float32(cfg.OriginalHeight) / float32(cfg.InputSize)
	invW := 1 / float32(cfg.OriginalWidth)
	invH := 1 / float32(cfg.OriginalHeight)

	var results []Result
	for a := 0; a < raw.Anchors(); a++ {
		// Strict > keeps the first maximal class on ties.
		classID := 0
		maxScore := float32(-1e9)
		for c := 0; c < numClasses; c++ {
			score := raw.At(geometryChannels+c, a)
			if score > maxScore {
				maxScore = score
				classID = c
			}
		}

		if maxScore < cfg.ConfidenceThreshold {
			continue
		}

		// Project center-form geometry from model-input space into
		// original-image pixel space, then normalize.
		cx := raw.At(0, a) * scaleX
		cy := raw.At(1, a) * scaleY
		w := raw.At(2, a) * scaleX
		h := raw.At(3, a) * scaleY

		box := images.BoxFromCenter(cx, cy, w, h).Scale(invW, invH).Clamp(0, 1)

		results = append(results, Result{
			Box:   box,
			Score: maxScore,
			Class: classID,
			Label: cfg.Classes[classID],
		})
	}

	return results, nil
}
