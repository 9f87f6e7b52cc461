// Package ml provides the tensor-map type handed to callers of a model's
// raw inference operation.
package ml

import (
	"sort"

	"github.com/pkg/errors"
	gtensor "gorgonia.org/tensor"

	"github.com/darknet-go/darknet/tensor"
)

// Tensors are a map of names to tensors of data.
type Tensors map[string]*gtensor.Dense

// FromBuffer converts a pipeline buffer into a dense tensor. The data is
// copied, so the result stays valid after the forward pass's scratch buffers
// are discarded.
func FromBuffer(t *tensor.Tensor) *gtensor.Dense {
	backing := make([]float64, t.Len())
	copy(backing, t.Data())
	return gtensor.New(gtensor.WithShape(t.Shape()...), gtensor.WithBacking(backing))
}

// ToBuffer converts a dense float64 tensor back into a pipeline buffer.
func ToBuffer(d *gtensor.Dense) (*tensor.Tensor, error) {
	data, ok := d.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("dont know how to convert backing of type %T into a []float64", d.Data())
	}
	return tensor.FromData(data, []int(d.Shape())...)
}

// Names returns the sorted names of the tensors.
func Names(ts Tensors) []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
