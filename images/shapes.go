// Package images - Geometry shared by the detection pipeline.
package images

import "github.com/chewxy/math32"

// Box is a lightweight corner-form bounding box.
//
// The same value type is used in model-input space, original-image pixel
// space, and normalized [0,1] space; the pipeline stage holding the box
// defines which frame the coordinates are in. A well-formed Box satisfies
// X1 <= X2 and Y1 <= Y2. Degenerate boxes (zero width or height) are legal
// values.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// BoxFromCenter builds a corner-form Box from a center point and extents,
// the convention detection models emit geometry in.
func BoxFromCenter(cx, cy, w, h float32) Box {
	return Box{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b Box) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box. Zero for degenerate boxes.
func (b Box) Area() float32 {
	return b.Width() * b.Height()
}

// Scale returns a copy of b with the horizontal coordinates multiplied by sx
// and the vertical coordinates by sy. Rescaling produces a new value so
// callers can keep the pre-scale box.
func (b Box) Scale(sx, sy float32) Box {
	return Box{
		X1: b.X1 * sx,
		Y1: b.Y1 * sy,
		X2: b.X2 * sx,
		Y2: b.Y2 * sy,
	}
}

// Clamp returns a copy of b with every coordinate limited to [lo, hi].
func (b Box) Clamp(lo, hi float32) Box {
	return Box{
		X1: clamp(b.X1, lo, hi),
		Y1: clamp(b.Y1, lo, hi),
		X2: clamp(b.X2, lo, hi),
		Y2: clamp(b.Y2, lo, hi),
	}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// IoU is the overlap ratio used by Non-Maximum Suppression to decide whether
// two detections describe the same object:
//
//	IoU = Area of Intersection / Area of Union
//
// The intersection corners are the max of the two top-left corners and the
// min of the two bottom-right corners. If the resulting width or height is
// zero or negative the boxes do not overlap and the IoU is 0. The union
// follows inclusion-exclusion: Area(r) + Area(o) - Area(intersection). A
// non-positive union (both boxes degenerate) also yields 0, so the function
// never divides by zero.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value in [0, 1]; 1.0 means identical non-degenerate boxes.
func CalculateIoU(r, o Box) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}
