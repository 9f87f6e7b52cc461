package tensor

import "fmt"

// ShapeError reports a mismatch between tensor shapes feeding an operation.
// It is fatal for the current call only; the tensors involved are unchanged.
type ShapeError struct {
	msg string
}

// NewShapeError creates a ShapeError with a formatted description.
func NewShapeError(format string, args ...interface{}) *ShapeError {
	return &ShapeError{msg: fmt.Sprintf(format, args...)}
}

func (e *ShapeError) Error() string {
	return "shape mismatch: " + e.msg
}

// IndexError reports an out-of-bounds tensor access. Correct shape checking
// upstream should make this unreachable.
type IndexError struct {
	Index []int
	Shape []int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %v out of range for shape %v", e.Index, e.Shape)
}
