// Package darknet runs object detection inference with darknet YOLO models.
//
// A Model is built from the standard darknet artifact trio: a .cfg network
// description, a .weights blob and a labels file. Once loaded it is
// read-only and safe for concurrent use.
package darknet

import (
	"context"
	"fmt"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/darknet-go/darknet/config"
	"github.com/darknet-go/darknet/ml"
	"github.com/darknet-go/darknet/nn"
	"github.com/darknet-go/darknet/tensor"
	"github.com/darknet-go/darknet/vision/objectdetection"
)

// DefaultConfThreshold is the objectness*class probability cutoff used when
// a DetectRequest leaves ConfThreshold unset.
const DefaultConfThreshold = 0.5

// DefaultIoUThreshold is the overlap cutoff for non-maximum suppression used
// when a DetectRequest leaves IoUThreshold unset.
const DefaultIoUThreshold = 0.45

// Model is a loaded darknet network ready for inference.
type Model struct {
	net    *nn.Network
	logger golog.Logger
}

// NewModel wraps an already constructed network.
func NewModel(net *nn.Network, logger golog.Logger) (*Model, error) {
	if net == nil {
		return nil, errors.New("model needs a network")
	}
	if len(net.Heads()) == 0 {
		return nil, errors.New("network has no detection heads")
	}
	return &Model{net: net, logger: logger}, nil
}

// Load builds a model from a darknet cfg file, a weights file and an
// optional labels file (pass "" to skip labels).
func Load(cfgPath, weightsPath, labelsPath string, logger golog.Logger) (*Model, error) {
	var labels []string
	if labelsPath != "" {
		var err error
		labels, err = config.LoadLabels(labelsPath)
		if err != nil {
			return nil, err
		}
	}

	sections, err := config.ParseFile(cfgPath)
	if err != nil {
		return nil, err
	}
	net, err := config.BuildNetwork(sections, labels, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "building network from %s", cfgPath)
	}
	if err := config.LoadWeightsFile(weightsPath, net, logger); err != nil {
		return nil, err
	}
	return NewModel(net, logger)
}

// Network returns the underlying network.
func (m *Model) Network() *nn.Network { return m.net }

// InputShape returns the CHW shape the model expects.
func (m *Model) InputShape() []int {
	return []int{m.net.Channels(), m.net.Height(), m.net.Width()}
}

// Labels returns the class names, or nil if the model was loaded without.
func (m *Model) Labels() []string { return m.net.Labels() }

// Infer runs the network and returns the raw head outputs keyed
// "yolo0", "yolo1", ... in layer order.
func (m *Model) Infer(ctx context.Context, input *tensor.Tensor) (ml.Tensors, error) {
	heads, err := m.net.Forward(ctx, input)
	if err != nil {
		return nil, err
	}
	out := make(ml.Tensors, len(heads))
	for i, h := range heads {
		out[fmt.Sprintf("yolo%d", i)] = ml.FromBuffer(h.Out)
	}
	return out, nil
}

// DetectRequest holds one detection call's input and thresholds. Zero
// thresholds select the package defaults.
type DetectRequest struct {
	Input         *tensor.Tensor
	ConfThreshold float64
	IoUThreshold  float64
}

// Detect runs the network on the input image tensor, decodes the head
// outputs into boxes and suppresses overlapping duplicates per class. The
// result is sorted by descending probability.
func (m *Model) Detect(ctx context.Context, req DetectRequest) ([]objectdetection.Detection, error) {
	if req.Input == nil {
		return nil, errors.New("detect needs an input tensor")
	}
	conf := req.ConfThreshold
	if conf == 0 {
		conf = DefaultConfThreshold
	}
	iou := req.IoUThreshold
	if iou == 0 {
		iou = DefaultIoUThreshold
	}
	if conf < 0 || conf > 1 {
		return nil, errors.Errorf("confidence threshold %v outside [0,1]", conf)
	}
	if iou < 0 || iou > 1 {
		return nil, errors.Errorf("iou threshold %v outside [0,1]", iou)
	}

	heads, err := m.net.Forward(ctx, req.Input)
	if err != nil {
		return nil, err
	}
	candidates, err := objectdetection.Decode(heads, m.net.Width(), m.net.Height(), conf, m.net.Labels())
	if err != nil {
		return nil, err
	}
	dets := objectdetection.NonMaxSuppression(candidates, iou)
	if m.logger != nil {
		m.logger.Debugw("detection pass", "candidates", len(candidates), "kept", len(dets))
	}
	return dets, nil
}
