package nn

import (
	"context"
	"math"

	"github.com/darknet-go/darknet/tensor"
)

// MaxPool takes the max over a Size x Size window at the given stride.
// Window positions falling outside the input are clipped, not zero-padded.
type MaxPool struct {
	InC, InH, InW int
	Size          int
	Stride        int
	Pad           int
}

// NewMaxPool builds a max pooling layer over an InC x InH x InW input.
func NewMaxPool(inC, inH, inW, size, stride, pad int) (*MaxPool, error) {
	if inC <= 0 || inH <= 0 || inW <= 0 {
		return nil, NewConfigError("maxpool input shape [%d %d %d] not positive", inC, inH, inW)
	}
	if size <= 0 || stride <= 0 || pad < 0 {
		return nil, NewConfigError("maxpool params size=%d stride=%d pad=%d out of range", size, stride, pad)
	}
	if inH+pad < size || inW+pad < size {
		return nil, NewConfigError("maxpool window %d larger than padded input %dx%d", size, inH+pad, inW+pad)
	}
	return &MaxPool{InC: inC, InH: inH, InW: inW, Size: size, Stride: stride, Pad: pad}, nil
}

// Kind implements Layer.
func (m *MaxPool) Kind() string { return "maxpool" }

// OutShape implements Layer.
func (m *MaxPool) OutShape() []int {
	return []int{m.InC, m.outH(), m.outW()}
}

func (m *MaxPool) outH() int { return (m.InH+m.Pad-m.Size)/m.Stride + 1 }
func (m *MaxPool) outW() int { return (m.InW+m.Pad-m.Size)/m.Stride + 1 }

// Forward implements Layer.
func (m *MaxPool) Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	in, err := wantOneInput(m.Kind(), inputs)
	if err != nil {
		return nil, err
	}
	if err := checkCHW(m.Kind(), in, m.InC, m.InH, m.InW); err != nil {
		return nil, err
	}

	outH, outW := m.outH(), m.outW()
	out, err := tensor.New(m.InC, outH, outW)
	if err != nil {
		return nil, err
	}
	src := in.Data()
	dst := out.Data()
	// windows start offset by -Pad/2 and skip positions outside the input
	offset := -m.Pad / 2
	for c := 0; c < m.InC; c++ {
		plane := src[c*m.InH*m.InW : (c+1)*m.InH*m.InW]
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				best := math.Inf(-1)
				for ky := 0; ky < m.Size; ky++ {
					iy := y*m.Stride + ky + offset
					if iy < 0 || iy >= m.InH {
						continue
					}
					for kx := 0; kx < m.Size; kx++ {
						ix := x*m.Stride + kx + offset
						if ix < 0 || ix >= m.InW {
							continue
						}
						if v := plane[iy*m.InW+ix]; v > best {
							best = v
						}
					}
				}
				dst[(c*outH+y)*outW+x] = best
			}
		}
	}
	return out, nil
}
