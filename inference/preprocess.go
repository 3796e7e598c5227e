package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput fills a model input buffer from an image.
//
// The image is resized to the square inputSize x inputSize using Lanczos3
// and written as planar RGB (all red values, then green, then blue), each
// channel normalized to [0,1]. The aspect ratio is not preserved; the
// decoder's per-axis scale factors undo the distortion when mapping boxes
// back to the original frame.
//
// Arguments:
//   - img: The frame to prepare.
//   - data: The destination buffer, typically the backing slice of the
//     runtime's input tensor.
//   - inputSize: The square side length the network consumes.
//
// Returns:
//   - error: An error if the destination buffer is too small for the
//     requested size.
func PrepareInput(img image.Image, data []float32, inputSize int) error {
	if inputSize <= 0 {
		return errors.Errorf("input size must be positive, got %d", inputSize)
	}

	channelSize := inputSize * inputSize
	if len(data) < channelSize*3 {
		return errors.Errorf("destination buffer holds %d floats, needs %d "+
			"(make sure it's the right shape)", len(data), channelSize*3)
	}
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	img = resize.Resize(uint(inputSize), uint(inputSize), img, resize.Lanczos3)

	i := 0
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
