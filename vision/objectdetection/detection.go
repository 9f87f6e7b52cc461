// Package objectdetection turns the raw output tensors of a network's
// detection heads into a ranked list of detections: decode, threshold,
// suppress, sort.
package objectdetection

import (
	"fmt"

	"github.com/darknet-go/darknet/utils"
)

// Box is a bounding box in center form, normalized to [0,1] relative to the
// image it was decoded against.
type Box struct {
	// X, Y are the box center; W, H its full width and height.
	X, Y, W, H float64
}

// Clip clamps the box rectangle to the unit square, preserving center form.
func (b Box) Clip() Box {
	left := utils.Clamp(b.X-b.W/2, 0, 1)
	right := utils.Clamp(b.X+b.W/2, 0, 1)
	top := utils.Clamp(b.Y-b.H/2, 0, 1)
	bottom := utils.Clamp(b.Y+b.H/2, 0, 1)
	return Box{
		X: (left + right) / 2,
		Y: (top + bottom) / 2,
		W: right - left,
		H: bottom - top,
	}
}

// IoU is the intersection area of the two boxes over the area of their union.
func (b Box) IoU(o Box) float64 {
	interW := overlap(b.X, b.W, o.X, o.W)
	interH := overlap(b.Y, b.H, o.Y, o.H)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH
	union := b.W*b.H + o.W*o.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// overlap is the length of the intersection of two centered segments.
func overlap(c1, l1, c2, l2 float64) float64 {
	lo := c1 - l1/2
	if v := c2 - l2/2; v > lo {
		lo = v
	}
	hi := c1 + l1/2
	if v := c2 + l2/2; v < hi {
		hi = v
	}
	return hi - lo
}

// Detection is one detected object. Probability is the class confidence
// (objectness times the per-class score), always within [0,1].
type Detection struct {
	Box         Box
	Class       int
	Label       string
	Probability float64
	Objectness  float64
}

func (d Detection) String() string {
	label := d.Label
	if label == "" {
		label = fmt.Sprintf("class %d", d.Class)
	}
	return fmt.Sprintf("%s %.2f%% (%.4f %.4f %.4f %.4f)",
		label, d.Probability*100, d.Box.X, d.Box.Y, d.Box.W, d.Box.H)
}
