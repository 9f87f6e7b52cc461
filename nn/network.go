package nn

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/darknet-go/darknet/tensor"
)

// NetInput is the source index referring to the network's input image.
const NetInput = -1

// NetworkConfig carries the global metadata of a network.
type NetworkConfig struct {
	Width    int
	Height   int
	Channels int
	// Labels are optional class names, used only for output labeling.
	Labels []string
}

// Network is an ordered sequence of layers plus the metadata needed to
// interpret the detection heads. It is immutable once constructed and safe
// to share across concurrent forward passes: all per-pass state lives in the
// call.
type Network struct {
	cfg     NetworkConfig
	layers  []Layer
	sources [][]int
	heads   []int
}

// New validates the layer graph and builds a Network. sources[i] lists the
// indices of the layers feeding layer i (NetInput for the input image); a
// nil entry defaults to the immediately preceding layer. Every structural
// problem found is reported, wrapped in a single error, and no partial
// network is returned.
func New(cfg NetworkConfig, layers []Layer, sources [][]int) (*Network, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Channels <= 0 {
		return nil, NewConfigError("input shape %dx%dx%d not positive", cfg.Channels, cfg.Height, cfg.Width)
	}
	if len(layers) == 0 {
		return nil, NewConfigError("network has no layers")
	}
	if len(sources) != len(layers) {
		return nil, NewConfigError("have %d source lists for %d layers", len(sources), len(layers))
	}

	inShape := []int{cfg.Channels, cfg.Height, cfg.Width}
	resolved := make([][]int, len(layers))
	var heads []int
	var errs error
	for i, l := range layers {
		srcs := sources[i]
		if srcs == nil {
			srcs = []int{i - 1}
			if i == 0 {
				srcs = []int{NetInput}
			}
		}
		resolved[i] = append([]int(nil), srcs...)

		ok := true
		for _, s := range srcs {
			if s < NetInput || s >= i {
				errs = multierr.Combine(errs, NewConfigError(
					"layer %d (%s) references layer %d, which is not computed before it", i, l.Kind(), s))
				ok = false
			}
		}
		if !ok {
			continue
		}
		shapeOf := func(s int) []int {
			if s == NetInput {
				return inShape
			}
			return layers[s].OutShape()
		}
		if err := checkLayerWiring(i, l, srcs, shapeOf); err != nil {
			errs = multierr.Combine(errs, err)
			continue
		}
		if _, isHead := l.(*YOLO); isHead {
			heads = append(heads, i)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return &Network{cfg: cfg, layers: layers, sources: resolved, heads: heads}, nil
}

// checkLayerWiring verifies input arity and shape chaining for one layer.
func checkLayerWiring(i int, l Layer, srcs []int, shapeOf func(int) []int) error {
	var want [][]int
	switch layer := l.(type) {
	case *Convolutional:
		want = [][]int{{layer.InC, layer.InH, layer.InW}}
	case *MaxPool:
		want = [][]int{{layer.InC, layer.InH, layer.InW}}
	case *Upsample:
		want = [][]int{{layer.InC, layer.InH, layer.InW}}
	case *YOLO:
		want = [][]int{{layer.InC, layer.InH, layer.InW}}
	case *Shortcut:
		shape := []int{layer.InC, layer.InH, layer.InW}
		want = [][]int{shape, shape}
	case *Route:
		want = layer.SrcShapes()
	default:
		return NewConfigError("layer %d has unknown kind %q", i, l.Kind())
	}
	if len(srcs) != len(want) {
		return NewConfigError("layer %d (%s) wants %d inputs, is wired to %d", i, l.Kind(), len(want), len(srcs))
	}
	for j, s := range srcs {
		if !shapeEqual(shapeOf(s), want[j]) {
			return NewConfigError("layer %d (%s) input %d has shape %v, want %v",
				i, l.Kind(), j, shapeOf(s), want[j])
		}
	}
	return nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Width is the expected input width.
func (n *Network) Width() int { return n.cfg.Width }

// Height is the expected input height.
func (n *Network) Height() int { return n.cfg.Height }

// Channels is the expected input channel count.
func (n *Network) Channels() int { return n.cfg.Channels }

// Labels returns the optional class names.
func (n *Network) Labels() []string { return n.cfg.Labels }

// NumLayers is the number of layers.
func (n *Network) NumLayers() int { return len(n.layers) }

// Layer returns the i-th layer.
func (n *Network) Layer(i int) Layer { return n.layers[i] }

// Heads returns the indices of the detection head layers.
func (n *Network) Heads() []int { return append([]int(nil), n.heads...) }

// HeadOutput is the raw output of one detection head after a forward pass.
type HeadOutput struct {
	// Index is the head's layer position in the network.
	Index int
	Head  *YOLO
	Out   *tensor.Tensor
}

// Forward runs the network over one input image tensor and returns the raw
// outputs of every detection head, in layer order. Layer outputs are cached
// by index for the duration of the call so route and shortcut layers can
// reference any earlier output; the cache is discarded on return.
func (n *Network) Forward(ctx context.Context, input *tensor.Tensor) ([]HeadOutput, error) {
	if err := checkCHW("network input", input, n.cfg.Channels, n.cfg.Height, n.cfg.Width); err != nil {
		return nil, err
	}
	if len(n.heads) == 0 {
		return nil, NewConfigError("network has no detection heads")
	}

	outs := make([]*tensor.Tensor, len(n.layers))
	for i, l := range n.layers {
		srcs := n.sources[i]
		ins := make([]*tensor.Tensor, len(srcs))
		for j, s := range srcs {
			if s == NetInput {
				ins[j] = input
			} else {
				ins[j] = outs[s]
			}
		}
		out, err := l.Forward(ctx, ins)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d (%s)", i, l.Kind())
		}
		outs[i] = out
	}

	headOuts := make([]HeadOutput, 0, len(n.heads))
	for _, i := range n.heads {
		headOuts = append(headOuts, HeadOutput{
			Index: i,
			Head:  n.layers[i].(*YOLO),
			Out:   outs[i],
		})
	}
	return headOuts, nil
}
