package nn

import (
	"context"

	"github.com/darknet-go/darknet/tensor"
)

// boxFields is the per-anchor prediction prefix: tx, ty, tw, th, objectness.
const boxFields = 5

// YOLO is a detection head. It reshapes its input into per-anchor
// predictions (box offsets, objectness, class scores) and passes the values
// through untouched; semantic decoding happens downstream.
type YOLO struct {
	InC, InH, InW int
	Classes       int
	// Anchors is the network-wide anchor list in input pixels; Mask selects
	// the ones assigned to this head.
	Anchors [][2]float64
	Mask    []int
}

// NewYOLO builds a detection head over an InC x InH x InW feature map.
func NewYOLO(inC, inH, inW, classes int, anchors [][2]float64, mask []int) (*YOLO, error) {
	if inC <= 0 || inH <= 0 || inW <= 0 {
		return nil, NewConfigError("yolo input shape [%d %d %d] not positive", inC, inH, inW)
	}
	if classes <= 0 {
		return nil, NewConfigError("yolo head has %d classes", classes)
	}
	if len(mask) == 0 {
		return nil, NewConfigError("yolo head has an empty anchor mask")
	}
	for _, m := range mask {
		if m < 0 || m >= len(anchors) {
			return nil, NewConfigError("yolo mask entry %d outside anchor list of %d", m, len(anchors))
		}
	}
	if want := len(mask) * (boxFields + classes); inC != want {
		return nil, NewConfigError(
			"yolo head input has %d channels, want %d (%d anchors x (5+%d classes))",
			inC, want, len(mask), classes)
	}
	return &YOLO{
		InC: inC, InH: inH, InW: inW,
		Classes: classes,
		Anchors: anchors,
		Mask:    mask,
	}, nil
}

// Kind implements Layer.
func (y *YOLO) Kind() string { return "yolo" }

// NumAnchors is the number of anchors assigned to this head.
func (y *YOLO) NumAnchors() int { return len(y.Mask) }

// Anchor returns the input-pixel dimensions of the i-th assigned anchor.
func (y *YOLO) Anchor(i int) (w, h float64) {
	a := y.Anchors[y.Mask[i]]
	return a[0], a[1]
}

// OutShape implements Layer: anchors x (5+classes) x H x W.
func (y *YOLO) OutShape() []int {
	return []int{len(y.Mask), boxFields + y.Classes, y.InH, y.InW}
}

// Forward implements Layer. The output is a reshaped view over the input's
// storage; no values are transformed.
func (y *YOLO) Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	in, err := wantOneInput(y.Kind(), inputs)
	if err != nil {
		return nil, err
	}
	if err := checkCHW(y.Kind(), in, y.InC, y.InH, y.InW); err != nil {
		return nil, err
	}
	return in.Reshape(y.OutShape()...)
}
