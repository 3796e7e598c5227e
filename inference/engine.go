// Package inference - Model execution behind the post-processing core.
package inference

import (
	"context"
	"image"

	"github.com/nvr-ai/go-vision/models/postprocess"
)

// Engine is the boundary between the detector and the model runtime.
//
// An Engine owns the network call end to end: preprocessing the frame into
// its input tensor, running the forward pass, and exposing the raw output
// tensor. It never post-processes; decoding and suppression belong to the
// caller so the same engine can serve any threshold configuration.
type Engine interface {
	// Predict runs one forward pass over the frame and returns the raw
	// output tensor. Implementations are not required to be safe for
	// concurrent Predict calls; admission control is the caller's job.
	Predict(ctx context.Context, img image.Image) (*postprocess.RawOutput, error)

	// InputSize reports the square side length the network consumes.
	InputSize() int

	// Close releases the runtime resources. The engine is unusable after.
	Close() error
}

// AnchorsForInputSize returns the anchor count this model family emits for a
// square input: the stride-8, stride-16 and stride-32 grids summed, which
// works out to 21*(inputSize/32)^2 (8400 for 640, 2100 for 320).
func AnchorsForInputSize(inputSize int) int {
	g := inputSize / 32
	return 21 * g * g
}
