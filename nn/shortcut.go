package nn

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/darknet-go/darknet/tensor"
)

// Shortcut adds the output of an earlier layer to its input, elementwise.
// The two shapes must match exactly.
type Shortcut struct {
	InC, InH, InW int
	Activation    Activation
}

// NewShortcut builds a shortcut (residual add) layer. Both inputs must be
// shaped InC x InH x InW.
func NewShortcut(inC, inH, inW int, act Activation) (*Shortcut, error) {
	if inC <= 0 || inH <= 0 || inW <= 0 {
		return nil, NewConfigError("shortcut input shape [%d %d %d] not positive", inC, inH, inW)
	}
	return &Shortcut{InC: inC, InH: inH, InW: inW, Activation: act}, nil
}

// Kind implements Layer.
func (s *Shortcut) Kind() string { return "shortcut" }

// OutShape implements Layer.
func (s *Shortcut) OutShape() []int {
	return []int{s.InC, s.InH, s.InW}
}

// Forward implements Layer. inputs[0] is the preceding layer's output,
// inputs[1] the back-referenced layer's output.
func (s *Shortcut) Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(inputs) != 2 {
		return nil, tensor.NewShapeError("shortcut layer wants 2 inputs, have %d", len(inputs))
	}
	for _, in := range inputs {
		if err := checkCHW(s.Kind(), in, s.InC, s.InH, s.InW); err != nil {
			return nil, err
		}
	}
	out := inputs[0].Clone()
	floats.Add(out.Data(), inputs[1].Data())
	s.Activation.applySlice(out.Data())
	return out, nil
}
