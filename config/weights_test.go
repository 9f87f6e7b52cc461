package config

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/darknet-go/darknet/nn"
)

func buildTestNet(t *testing.T, cfg string) *nn.Network {
	t.Helper()
	sections, err := Parse(strings.NewReader(cfg))
	test.That(t, err, test.ShouldBeNil)
	net, err := BuildNetwork(sections, nil, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return net
}

func writeFloats(t *testing.T, buf *bytes.Buffer, vals ...float32) {
	t.Helper()
	test.That(t, binary.Write(buf, binary.LittleEndian, vals), test.ShouldBeNil)
}

func writeHeader(t *testing.T, buf *bytes.Buffer, major, minor int32) {
	t.Helper()
	test.That(t, binary.Write(buf, binary.LittleEndian, [3]int32{major, minor, 0}), test.ShouldBeNil)
	if major*10+minor >= 2 {
		test.That(t, binary.Write(buf, binary.LittleEndian, uint64(1000)), test.ShouldBeNil)
	} else {
		test.That(t, binary.Write(buf, binary.LittleEndian, uint32(1000)), test.ShouldBeNil)
	}
}

const plainConvCfg = `
[net]
width=2
height=2
channels=1

[convolutional]
filters=2
size=1
stride=1
activation=linear
`

func TestLoadWeights(t *testing.T) {
	net := buildTestNet(t, plainConvCfg)

	var buf bytes.Buffer
	writeHeader(t, &buf, 0, 2)
	writeFloats(t, &buf, 0.5, -1.5)  // biases
	writeFloats(t, &buf, 2.0, 3.25) // weights, 2 filters of 1x1x1

	test.That(t, LoadWeights(&buf, net), test.ShouldBeNil)
	conv := net.Layer(0).(*nn.Convolutional)
	test.That(t, conv.Biases(), test.ShouldResemble, []float64{0.5, -1.5})
	test.That(t, conv.Weights().Data(), test.ShouldResemble, []float64{2.0, 3.25})
}

func TestLoadWeightsOldSeenCounter(t *testing.T) {
	net := buildTestNet(t, plainConvCfg)

	var buf bytes.Buffer
	writeHeader(t, &buf, 0, 1)
	writeFloats(t, &buf, 1, 2)
	writeFloats(t, &buf, 3, 4)

	test.That(t, LoadWeights(&buf, net), test.ShouldBeNil)
	conv := net.Layer(0).(*nn.Convolutional)
	test.That(t, conv.Biases(), test.ShouldResemble, []float64{1, 2})
}

func TestLoadWeightsBatchNorm(t *testing.T) {
	net := buildTestNet(t, `
[net]
width=2
height=2
channels=1

[convolutional]
batch_normalize=1
filters=1
size=1
stride=1
activation=linear
`)

	var buf bytes.Buffer
	writeHeader(t, &buf, 0, 2)
	writeFloats(t, &buf, 0.25) // bias
	writeFloats(t, &buf, 2)   // scale
	writeFloats(t, &buf, 0.5) // mean
	writeFloats(t, &buf, 1)   // variance
	writeFloats(t, &buf, 7)   // weight

	test.That(t, LoadWeights(&buf, net), test.ShouldBeNil)
	conv := net.Layer(0).(*nn.Convolutional)
	test.That(t, conv.BatchNorm(), test.ShouldBeTrue)
	test.That(t, conv.Weights().Data(), test.ShouldResemble, []float64{7})
}

func TestLoadWeightsTruncated(t *testing.T) {
	net := buildTestNet(t, plainConvCfg)

	var buf bytes.Buffer
	writeHeader(t, &buf, 0, 2)
	writeFloats(t, &buf, 0.5) // one bias of two, then nothing

	err := LoadWeights(&buf, net)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "layer 0")
}

func TestLoadWeightsTrailingData(t *testing.T) {
	net := buildTestNet(t, plainConvCfg)

	var buf bytes.Buffer
	writeHeader(t, &buf, 0, 2)
	writeFloats(t, &buf, 0.5, -1.5)
	writeFloats(t, &buf, 2.0, 3.25)
	writeFloats(t, &buf, 9) // one float too many

	err := LoadWeights(&buf, net)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "trailing")
}

func TestLoadWeightsBadHeader(t *testing.T) {
	net := buildTestNet(t, plainConvCfg)
	err := LoadWeights(bytes.NewReader([]byte{1, 2, 3}), net)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.txt")
	test.That(t, os.WriteFile(path, []byte("person\n\nbicycle\ncar\n"), 0o600), test.ShouldBeNil)

	labels, err := LoadLabels(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"person", "bicycle", "car"})

	_, err = LoadLabels(filepath.Join(dir, "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}
