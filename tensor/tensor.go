// Package tensor provides the dense numeric buffers that flow between the
// layers of a network. Buffers are row-major float64 with explicit shapes;
// image-like data uses (channels, height, width) order.
package tensor

import "fmt"

// Tensor is a dense multi-dimensional array. The backing slice always has
// exactly as many elements as the product of the shape dims. A Tensor may be
// a view over a channel range of another Tensor, in which case the two share
// backing storage.
type Tensor struct {
	shape   []int
	strides []int
	data    []float64
}

// New returns a zero-filled tensor of the given shape.
func New(shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    make([]float64, n),
	}, nil
}

// FromData wraps an existing slice as a tensor of the given shape. The slice
// is used directly, not copied.
func FromData(data []float64, shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, NewShapeError("data length %d does not match shape %v (want %d)", len(data), shape, n)
	}
	return &Tensor{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    data,
	}, nil
}

func checkShape(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, NewShapeError("empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, NewShapeError("non-positive dim in shape %v", shape)
		}
		n *= d
	}
	return n, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// Shape returns a copy of the tensor's dims.
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Dims returns the number of dims.
func (t *Tensor) Dims() int { return len(t.shape) }

// Dim returns the size of the i-th dim.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data exposes the backing slice. Layer kernels index it directly through
// the strides; everything else should go through At/Set.
func (t *Tensor) Data() []float64 { return t.data }

// Stride returns the element stride of the i-th dim.
func (t *Tensor) Stride(i int) int { return t.strides[i] }

func (t *Tensor) offset(idx []int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, &IndexError{Index: append([]int(nil), idx...), Shape: t.Shape()}
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			return 0, &IndexError{Index: append([]int(nil), idx...), Shape: t.Shape()}
		}
		off += x * t.strides[i]
	}
	return off, nil
}

// At returns the element at the given index, bounds-checked.
func (t *Tensor) At(idx ...int) (float64, error) {
	off, err := t.offset(idx)
	if err != nil {
		return 0, err
	}
	return t.data[off], nil
}

// Set writes the element at the given index, bounds-checked.
func (t *Tensor) Set(v float64, idx ...int) error {
	off, err := t.offset(idx)
	if err != nil {
		return err
	}
	t.data[off] = v
	return nil
}

// Reshape returns a tensor over the same backing data with a new shape.
// The element count must be preserved.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if n != len(t.data) {
		return nil, NewShapeError("cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, n)
	}
	return &Tensor{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    t.data,
	}, nil
}

// SliceChannels returns a view over channels [from, to) of a CHW tensor.
// The view shares backing storage with the receiver.
func (t *Tensor) SliceChannels(from, to int) (*Tensor, error) {
	if len(t.shape) != 3 {
		return nil, NewShapeError("channel slice needs a CHW tensor, have shape %v", t.shape)
	}
	if from < 0 || to > t.shape[0] || from >= to {
		return nil, &IndexError{Index: []int{from, to}, Shape: t.Shape()}
	}
	chStride := t.strides[0]
	shape := []int{to - from, t.shape[1], t.shape[2]}
	return &Tensor{
		shape:   shape,
		strides: rowMajorStrides(shape),
		data:    t.data[from*chStride : to*chStride],
	}, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{
		shape:   t.Shape(),
		strides: append([]int(nil), t.strides...),
		data:    data,
	}
}

func (t *Tensor) String() string {
	return fmt.Sprintf("tensor%v", t.shape)
}
