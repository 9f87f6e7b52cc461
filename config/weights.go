package config

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/darknet-go/darknet/nn"
)

// weightsHeader is the fixed prefix of a darknet weights file. The size of
// the "images seen" counter that follows depends on the format version.
type weightsHeader struct {
	Major    int32
	Minor    int32
	Revision int32
}

// LoadWeights reads a darknet weights blob into the network's convolutional
// layers, in layer order. Values are stored as float32 little-endian and
// widened on load. The stream must contain exactly the weights the network
// needs: both truncated and oversized files are errors.
func LoadWeights(r io.Reader, net *nn.Network) error {
	var hdr weightsHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "reading weights header")
	}
	// newer format versions widened the seen counter to 64 bits
	if hdr.Major*10+hdr.Minor >= 2 {
		var seen uint64
		if err := binary.Read(r, binary.LittleEndian, &seen); err != nil {
			return errors.Wrap(err, "reading weights header")
		}
	} else {
		var seen uint32
		if err := binary.Read(r, binary.LittleEndian, &seen); err != nil {
			return errors.Wrap(err, "reading weights header")
		}
	}

	for i := 0; i < net.NumLayers(); i++ {
		conv, ok := net.Layer(i).(*nn.Convolutional)
		if !ok {
			continue
		}
		if err := loadConvWeights(r, conv); err != nil {
			return errors.Wrapf(err, "layer %d (convolutional)", i)
		}
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return errors.New("weights file has trailing data after the last layer")
	}
	return nil
}

// LoadWeightsFile opens path and reads it with LoadWeights.
func LoadWeightsFile(path string, net *nn.Network, logger golog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening weights file")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	if err := LoadWeights(f, net); err != nil {
		return errors.Wrapf(err, "loading weights from %s", path)
	}
	logger.Debugw("loaded weights", "path", path)
	return nil
}

func loadConvWeights(r io.Reader, conv *nn.Convolutional) error {
	biases, err := readFloats(r, conv.Filters)
	if err != nil {
		return errors.Wrap(err, "biases")
	}
	copy(conv.Biases(), biases)

	if conv.BatchNorm() {
		scales, err := readFloats(r, conv.Filters)
		if err != nil {
			return errors.Wrap(err, "batch norm scales")
		}
		means, err := readFloats(r, conv.Filters)
		if err != nil {
			return errors.Wrap(err, "batch norm means")
		}
		variances, err := readFloats(r, conv.Filters)
		if err != nil {
			return errors.Wrap(err, "batch norm variances")
		}
		if err := conv.SetBatchNorm(scales, means, variances); err != nil {
			return err
		}
	}

	weights, err := readFloats(r, conv.Weights().Len())
	if err != nil {
		return errors.Wrap(err, "weights")
	}
	copy(conv.Weights().Data(), weights)
	return nil
}

func readFloats(r io.Reader, n int) ([]float64, error) {
	buf := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out, nil
}
