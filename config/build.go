package config

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/darknet-go/darknet/nn"
	"github.com/darknet-go/darknet/tensor"
)

// builder walks the cfg sections in order, tracking the output shape of each
// layer so back-references and channel counts can be resolved.
type builder struct {
	layers  []nn.Layer
	sources [][]int
	// shapes[i] is the CHW output shape of layer i
	shapes [][]int
	curC   int
	curH   int
	curW   int
}

// BuildNetwork constructs a network from parsed cfg sections. Weights are
// allocated but zero; load them with LoadWeights. labels may be nil.
func BuildNetwork(sections []*Section, labels []string, logger golog.Logger) (*nn.Network, error) {
	if len(sections) == 0 {
		return nil, nn.NewConfigError("cfg has no sections")
	}
	netSec := sections[0]
	if netSec.Kind != "net" && netSec.Kind != "network" {
		return nil, nn.NewConfigError("cfg must start with a [net] section, have [%s]", netSec.Kind)
	}
	width, err := netSec.Int("width", 0)
	if err != nil {
		return nil, err
	}
	height, err := netSec.Int("height", 0)
	if err != nil {
		return nil, err
	}
	channels, err := netSec.Int("channels", 3)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, nn.NewConfigError("[net] input %dx%dx%d not positive", channels, height, width)
	}

	b := &builder{curC: channels, curH: height, curW: width}
	for _, sec := range sections[1:] {
		var err error
		switch sec.Kind {
		case "convolutional":
			err = b.addConvolutional(sec)
		case "maxpool":
			err = b.addMaxPool(sec)
		case "upsample":
			err = b.addUpsample(sec)
		case "route":
			err = b.addRoute(sec)
		case "shortcut":
			err = b.addShortcut(sec)
		case "yolo":
			err = b.addYOLO(sec)
		default:
			err = nn.NewConfigError("line %d: unsupported layer kind [%s]", sec.Line, sec.Kind)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "building layer %d", len(b.layers))
		}
	}

	net, err := nn.New(nn.NetworkConfig{
		Width:    width,
		Height:   height,
		Channels: channels,
		Labels:   labels,
	}, b.layers, b.sources)
	if err != nil {
		return nil, err
	}
	logger.Debugw("built network",
		"layers", net.NumLayers(),
		"heads", len(net.Heads()),
		"input", []int{channels, height, width})
	return net, nil
}

// push records a layer that consumes the running output shape.
func (b *builder) push(l nn.Layer, sources []int) {
	b.layers = append(b.layers, l)
	b.sources = append(b.sources, sources)
	shape := l.OutShape()
	b.shapes = append(b.shapes, shape)
	if len(shape) == 3 {
		b.curC, b.curH, b.curW = shape[0], shape[1], shape[2]
	}
}

func (b *builder) addConvolutional(sec *Section) error {
	filters, err := sec.Int("filters", 1)
	if err != nil {
		return err
	}
	size, err := sec.Int("size", 1)
	if err != nil {
		return err
	}
	stride, err := sec.Int("stride", 1)
	if err != nil {
		return err
	}
	padding, err := sec.Int("padding", 0)
	if err != nil {
		return err
	}
	pad, err := sec.Int("pad", 0)
	if err != nil {
		return err
	}
	if pad != 0 {
		padding = size / 2
	}
	batchNorm, err := sec.Int("batch_normalize", 0)
	if err != nil {
		return err
	}
	act, err := nn.ParseActivation(sec.Str("activation", "linear"))
	if err != nil {
		return err
	}

	weights, err := tensor.New(filters, b.curC, size, size)
	if err != nil {
		return err
	}
	conv, err := nn.NewConvolutional(
		b.curC, b.curH, b.curW,
		filters, size, stride, padding,
		act, weights, make([]float64, filters),
	)
	if err != nil {
		return err
	}
	if batchNorm != 0 {
		zeros := func() []float64 { return make([]float64, filters) }
		if err := conv.SetBatchNorm(zeros(), zeros(), zeros()); err != nil {
			return err
		}
	}
	b.push(conv, nil)
	return nil
}

func (b *builder) addMaxPool(sec *Section) error {
	stride, err := sec.Int("stride", 1)
	if err != nil {
		return err
	}
	size, err := sec.Int("size", stride)
	if err != nil {
		return err
	}
	padding, err := sec.Int("padding", size-1)
	if err != nil {
		return err
	}
	pool, err := nn.NewMaxPool(b.curC, b.curH, b.curW, size, stride, padding)
	if err != nil {
		return err
	}
	b.push(pool, nil)
	return nil
}

func (b *builder) addUpsample(sec *Section) error {
	stride, err := sec.Int("stride", 2)
	if err != nil {
		return err
	}
	up, err := nn.NewUpsample(b.curC, b.curH, b.curW, stride)
	if err != nil {
		return err
	}
	b.push(up, nil)
	return nil
}

// resolveRef turns a cfg layer reference (negative means relative to the
// layer being built) into an absolute index.
func (b *builder) resolveRef(sec *Section, ref int) (int, error) {
	idx := ref
	if ref < 0 {
		idx = len(b.layers) + ref
	}
	if idx < 0 || idx >= len(b.layers) {
		return 0, nn.NewConfigError("line %d: [%s] references layer %d, which does not exist before layer %d",
			sec.Line, sec.Kind, ref, len(b.layers))
	}
	return idx, nil
}

func (b *builder) addRoute(sec *Section) error {
	refs, err := sec.IntSlice("layers")
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nn.NewConfigError("line %d: [route] has no layers option", sec.Line)
	}
	srcs := make([]int, 0, len(refs))
	srcShapes := make([][]int, 0, len(refs))
	for _, ref := range refs {
		idx, err := b.resolveRef(sec, ref)
		if err != nil {
			return err
		}
		srcs = append(srcs, idx)
		srcShapes = append(srcShapes, b.shapes[idx])
	}
	route, err := nn.NewRoute(srcShapes)
	if err != nil {
		return err
	}
	b.push(route, srcs)
	return nil
}

func (b *builder) addShortcut(sec *Section) error {
	if !sec.Has("from") {
		return nn.NewConfigError("line %d: [shortcut] has no from option", sec.Line)
	}
	ref, err := sec.Int("from", 0)
	if err != nil {
		return err
	}
	from, err := b.resolveRef(sec, ref)
	if err != nil {
		return err
	}
	act, err := nn.ParseActivation(sec.Str("activation", "linear"))
	if err != nil {
		return err
	}
	sc, err := nn.NewShortcut(b.curC, b.curH, b.curW, act)
	if err != nil {
		return err
	}
	b.push(sc, []int{len(b.layers) - 1, from})
	return nil
}

func (b *builder) addYOLO(sec *Section) error {
	classes, err := sec.Int("classes", 20)
	if err != nil {
		return err
	}
	num, err := sec.Int("num", 1)
	if err != nil {
		return err
	}
	anchorsFlat, err := sec.FloatSlice("anchors")
	if err != nil {
		return err
	}
	if len(anchorsFlat)%2 != 0 || len(anchorsFlat)/2 != num {
		return nn.NewConfigError("line %d: [yolo] has %d anchor values for num=%d",
			sec.Line, len(anchorsFlat), num)
	}
	anchors := make([][2]float64, num)
	for i := range anchors {
		anchors[i] = [2]float64{anchorsFlat[2*i], anchorsFlat[2*i+1]}
	}
	mask, err := sec.IntSlice("mask")
	if err != nil {
		return err
	}
	if mask == nil {
		mask = make([]int, num)
		for i := range mask {
			mask[i] = i
		}
	}
	head, err := nn.NewYOLO(b.curC, b.curH, b.curW, classes, anchors, mask)
	if err != nil {
		return err
	}
	b.push(head, nil)
	return nil
}
