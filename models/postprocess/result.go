// Package postprocess - Converts raw detection-model output tensors into a
// filtered, deduplicated list of detections.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-vision/images"
)

// Result represents a single detection result.
//
// The box is in normalized [0,1] coordinates relative to the original image,
// so downstream consumers can map it onto any view size. Results are values
// and are never mutated once emitted by the decoder.
type Result struct {
	// The bounding box of the result, normalized to [0,1].
	Box images.Box
	// The confidence score of the result, the best class score for the anchor.
	Score float32
	// The predicted class index of the result.
	Class int
	// The human-readable label for Class.
	Label string
}

func (r Result) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%f, %f), (%f, %f)",
		r.Label, r.Score, r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
}
