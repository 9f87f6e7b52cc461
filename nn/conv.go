package nn

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/darknet-go/darknet/tensor"
	"github.com/darknet-go/darknet/utils"
)

const batchNormEpsilon = 1e-6

// Convolutional applies a 2D convolution with implicit zero padding,
// optional folded batch normalization, then an elementwise activation.
type Convolutional struct {
	InC, InH, InW int
	Filters       int
	Size          int
	Stride        int
	Pad           int
	Activation    Activation

	// weights are Filters x InC x Size x Size, biases length Filters.
	weights *tensor.Tensor
	biases  []float64

	batchNorm bool
	scales    []float64
	means     []float64
	variances []float64
}

// NewConvolutional builds a convolutional layer over an InC x InH x InW
// input. Weights must be shaped Filters x InC x Size x Size.
func NewConvolutional(
	inC, inH, inW, filters, size, stride, pad int,
	act Activation,
	weights *tensor.Tensor,
	biases []float64,
) (*Convolutional, error) {
	if inC <= 0 || inH <= 0 || inW <= 0 {
		return nil, NewConfigError("convolutional input shape [%d %d %d] not positive", inC, inH, inW)
	}
	if filters <= 0 || size <= 0 || stride <= 0 || pad < 0 {
		return nil, NewConfigError(
			"convolutional params filters=%d size=%d stride=%d pad=%d out of range",
			filters, size, stride, pad)
	}
	if inH+2*pad < size || inW+2*pad < size {
		return nil, NewConfigError("convolutional kernel %d larger than padded input %dx%d", size, inH+2*pad, inW+2*pad)
	}
	shape := weights.Shape()
	if len(shape) != 4 || shape[0] != filters || shape[1] != inC || shape[2] != size || shape[3] != size {
		return nil, NewConfigError("convolutional weights shaped %v, want [%d %d %d %d]",
			shape, filters, inC, size, size)
	}
	if len(biases) != filters {
		return nil, NewConfigError("convolutional has %d biases for %d filters", len(biases), filters)
	}
	return &Convolutional{
		InC: inC, InH: inH, InW: inW,
		Filters: filters, Size: size, Stride: stride, Pad: pad,
		Activation: act,
		weights:    weights,
		biases:     biases,
	}, nil
}

// SetBatchNorm attaches batch normalization statistics, folded into the
// layer at forward time (scale, running mean and variance per filter).
func (c *Convolutional) SetBatchNorm(scales, means, variances []float64) error {
	if len(scales) != c.Filters || len(means) != c.Filters || len(variances) != c.Filters {
		return NewConfigError("batch norm stats %d/%d/%d do not match %d filters",
			len(scales), len(means), len(variances), c.Filters)
	}
	c.batchNorm = true
	c.scales = scales
	c.means = means
	c.variances = variances
	return nil
}

// BatchNorm reports whether batch normalization stats are attached.
func (c *Convolutional) BatchNorm() bool { return c.batchNorm }

// Weights exposes the weight tensor for loaders.
func (c *Convolutional) Weights() *tensor.Tensor { return c.weights }

// Biases exposes the bias vector for loaders.
func (c *Convolutional) Biases() []float64 { return c.biases }

// Kind implements Layer.
func (c *Convolutional) Kind() string { return "convolutional" }

// OutShape implements Layer.
func (c *Convolutional) OutShape() []int {
	return []int{c.Filters, c.outH(), c.outW()}
}

func (c *Convolutional) outH() int { return (c.InH+2*c.Pad-c.Size)/c.Stride + 1 }
func (c *Convolutional) outW() int { return (c.InW+2*c.Pad-c.Size)/c.Stride + 1 }

// Forward computes the convolution as an im2col unroll followed by a matrix
// product, with the filter rows split across workers. Each worker writes a
// disjoint row block, so the result is identical to sequential evaluation.
func (c *Convolutional) Forward(ctx context.Context, inputs []*tensor.Tensor) (*tensor.Tensor, error) {
	in, err := wantOneInput(c.Kind(), inputs)
	if err != nil {
		return nil, err
	}
	if err := checkCHW(c.Kind(), in, c.InC, c.InH, c.InW); err != nil {
		return nil, err
	}

	outH, outW := c.outH(), c.outW()
	out, err := tensor.New(c.Filters, outH, outW)
	if err != nil {
		return nil, err
	}

	kk := c.InC * c.Size * c.Size
	ohw := outH * outW
	cols := c.im2col(in.Data(), outH, outW)

	wm := mat.NewDense(c.Filters, kk, c.weights.Data())
	cm := mat.NewDense(kk, ohw, cols)
	om := mat.NewDense(c.Filters, ohw, out.Data())
	utils.ForEachSpan(c.Filters, func(from, to int) {
		dst := om.Slice(from, to, 0, ohw).(*mat.Dense)
		dst.Mul(wm.Slice(from, to, 0, kk), cm)
	})

	// fold batch norm and bias into a per-filter affine, then activate
	data := out.Data()
	for f := 0; f < c.Filters; f++ {
		a, b := 1.0, c.biases[f]
		if c.batchNorm {
			a = c.scales[f] / math.Sqrt(c.variances[f]+batchNormEpsilon)
			b = c.biases[f] - a*c.means[f]
		}
		plane := data[f*ohw : (f+1)*ohw]
		for i, x := range plane {
			plane[i] = c.Activation.Apply(a*x + b)
		}
	}
	return out, nil
}

// im2col unrolls every kernel window into a column so the convolution
// becomes one matrix product. Out-of-bounds input positions are zero.
func (c *Convolutional) im2col(im []float64, outH, outW int) []float64 {
	kk := c.InC * c.Size * c.Size
	cols := make([]float64, kk*outH*outW)
	for r := 0; r < kk; r++ {
		kx := r % c.Size
		ky := (r / c.Size) % c.Size
		ch := r / c.Size / c.Size
		chPlane := im[ch*c.InH*c.InW : (ch+1)*c.InH*c.InW]
		row := cols[r*outH*outW : (r+1)*outH*outW]
		for y := 0; y < outH; y++ {
			iy := y*c.Stride + ky - c.Pad
			if iy < 0 || iy >= c.InH {
				continue
			}
			for x := 0; x < outW; x++ {
				ix := x*c.Stride + kx - c.Pad
				if ix < 0 || ix >= c.InW {
					continue
				}
				row[y*outW+x] = chPlane[iy*c.InW+ix]
			}
		}
	}
	return cols
}
