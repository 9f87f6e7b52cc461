package nn

import (
	"context"

	"github.com/darknet-go/darknet/tensor"
)

// Route concatenates the outputs of earlier layers along the channel
// dimension, in the listed order. All sources must share height and width.
type Route struct {
	srcShapes [][]int
	outC      int
}

// NewRoute builds a route layer given the CHW shapes of its sources, in
// the order they will be concatenated.
func NewRoute(srcShapes [][]int) (*Route, error) {
	if len(srcShapes) == 0 {
		return nil, NewConfigError("route layer has no sources")
	}
	h, w := srcShapes[0][1], srcShapes[0][2]
	outC := 0
	for i, s := range srcShapes {
		if len(s) != 3 {
			return nil, NewConfigError("route source %d has shape %v, want CHW", i, s)
		}
		if s[1] != h || s[2] != w {
			return nil, NewConfigError(
				"route sources disagree on spatial size: source 0 is %dx%d, source %d is %dx%d",
				h, w, i, s[1], s[2])
		}
		outC += s[0]
	}
	shapes := make([][]int, len(srcShapes))
	for i, s := range srcShapes {
		shapes[i] = append([]int(nil), s...)
	}
	return &Route{srcShapes: shapes, outC: outC}, nil
}

// Kind implements Layer.
func (r *Route) Kind() string { return "route" }

// SrcShapes returns the expected source shapes in concatenation order.
func (r *Route) SrcShapes() [][]int { return r.srcShapes }

// OutShape implements Layer.
func (r *Route) OutShape() []int {
	return []int{r.outC, r.srcShapes[0][1], r.srcShapes[0][2]}
}

// Forward implements Layer.
func (r *Route) Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) != len(r.srcShapes) {
		return nil, tensor.NewShapeError("route layer wants %d inputs, have %d", len(r.srcShapes), len(inputs))
	}
	for i, in := range inputs {
		want := r.srcShapes[i]
		if err := checkCHW(r.Kind(), in, want[0], want[1], want[2]); err != nil {
			return nil, err
		}
	}
	out, err := tensor.New(r.OutShape()...)
	if err != nil {
		return nil, err
	}
	// channel-major layout makes the concat a sequence of block copies
	dst := out.Data()
	off := 0
	for _, in := range inputs {
		off += copy(dst[off:], in.Data())
	}
	return out, nil
}
