// Package nn implements the layers of a darknet-style convolutional network
// and the forward pass over them. The layer set is closed: every variant the
// engine understands is defined in this package and dispatched through the
// Layer interface.
package nn

import (
	"context"

	"github.com/darknet-go/darknet/tensor"
)

// Layer is one unit of computation in a network. Route and Shortcut accept
// multiple inputs; every other kind accepts exactly one. Forward never
// mutates its inputs, so layer outputs can be shared by later back-references.
type Layer interface {
	// Kind names the layer variant, e.g. "convolutional".
	Kind() string
	// OutShape is the shape of the tensor Forward produces.
	OutShape() []int
	// Forward runs the layer over its inputs.
	Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error)
}

// wantOneInput is shared by the single-input layer kinds.
func wantOneInput(kind string, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, tensor.NewShapeError("%s layer wants exactly 1 input, have %d", kind, len(inputs))
	}
	return inputs[0], nil
}

// checkCHW verifies that in has the given CHW shape.
func checkCHW(kind string, in *tensor.Tensor, c, h, w int) error {
	if in.Dims() != 3 || in.Dim(0) != c || in.Dim(1) != h || in.Dim(2) != w {
		return tensor.NewShapeError("%s layer wants input [%d %d %d], have %v", kind, c, h, w, in.Shape())
	}
	return nil
}
