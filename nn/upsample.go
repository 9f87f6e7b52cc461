package nn

import (
	"context"

	"github.com/darknet-go/darknet/tensor"
)

// Upsample replicates every input pixel into a Factor x Factor block
// (nearest-neighbor upsampling).
type Upsample struct {
	InC, InH, InW int
	Factor        int
}

// NewUpsample builds a nearest-neighbor upsampling layer.
func NewUpsample(inC, inH, inW, factor int) (*Upsample, error) {
	if inC <= 0 || inH <= 0 || inW <= 0 {
		return nil, NewConfigError("upsample input shape [%d %d %d] not positive", inC, inH, inW)
	}
	if factor <= 0 {
		return nil, NewConfigError("upsample factor %d out of range", factor)
	}
	return &Upsample{InC: inC, InH: inH, InW: inW, Factor: factor}, nil
}

// Kind implements Layer.
func (u *Upsample) Kind() string { return "upsample" }

// OutShape implements Layer.
func (u *Upsample) OutShape() []int {
	return []int{u.InC, u.InH * u.Factor, u.InW * u.Factor}
}

// Forward implements Layer.
func (u *Upsample) Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	in, err := wantOneInput(u.Kind(), inputs)
	if err != nil {
		return nil, err
	}
	if err := checkCHW(u.Kind(), in, u.InC, u.InH, u.InW); err != nil {
		return nil, err
	}

	outH, outW := u.InH*u.Factor, u.InW*u.Factor
	out, err := tensor.New(u.InC, outH, outW)
	if err != nil {
		return nil, err
	}
	src := in.Data()
	dst := out.Data()
	for c := 0; c < u.InC; c++ {
		for y := 0; y < outH; y++ {
			srcRow := src[(c*u.InH+y/u.Factor)*u.InW:]
			dstRow := dst[(c*outH+y)*outW:]
			for x := 0; x < outW; x++ {
				dstRow[x] = srcRow[x/u.Factor]
			}
		}
	}
	return out, nil
}
