package tensor

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNew(t *testing.T) {
	tb, err := New(2, 3, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tb.Len(), test.ShouldEqual, 24)
	test.That(t, tb.Shape(), test.ShouldResemble, []int{2, 3, 4})

	_, err = New(2, 0, 4)
	var se *ShapeError
	test.That(t, errors.As(err, &se), test.ShouldBeTrue)

	_, err = New()
	test.That(t, errors.As(err, &se), test.ShouldBeTrue)
}

func TestFromData(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	tb, err := FromData(data, 2, 3)
	test.That(t, err, test.ShouldBeNil)
	v, err := tb.At(1, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 6)

	_, err = FromData(data, 2, 2)
	var se *ShapeError
	test.That(t, errors.As(err, &se), test.ShouldBeTrue)
}

func TestAtSetBounds(t *testing.T) {
	tb, err := New(2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tb.Set(7, 1, 0), test.ShouldBeNil)
	v, err := tb.At(1, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 7)

	var ie *IndexError
	_, err = tb.At(2, 0)
	test.That(t, errors.As(err, &ie), test.ShouldBeTrue)
	_, err = tb.At(0, -1)
	test.That(t, errors.As(err, &ie), test.ShouldBeTrue)
	_, err = tb.At(0)
	test.That(t, errors.As(err, &ie), test.ShouldBeTrue)
	err = tb.Set(1, 0, 5)
	test.That(t, errors.As(err, &ie), test.ShouldBeTrue)
}

func TestReshape(t *testing.T) {
	tb, err := New(2, 6)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tb.Set(9, 1, 5), test.ShouldBeNil)

	r, err := tb.Reshape(3, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Shape(), test.ShouldResemble, []int{3, 4})
	// same backing data
	v, err := r.At(2, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 9)

	_, err = tb.Reshape(5, 5)
	var se *ShapeError
	test.That(t, errors.As(err, &se), test.ShouldBeTrue)
}

func TestSliceChannels(t *testing.T) {
	tb, err := New(3, 2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tb.Set(5, 1, 1, 1), test.ShouldBeNil)
	test.That(t, tb.Set(6, 2, 0, 0), test.ShouldBeNil)

	view, err := tb.SliceChannels(1, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, view.Shape(), test.ShouldResemble, []int{2, 2, 2})
	v, err := view.At(0, 1, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 5)

	// view semantics: writes through the view are visible in the parent
	test.That(t, view.Set(8, 1, 0, 0), test.ShouldBeNil)
	v, err = tb.At(2, 0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 8)

	var ie *IndexError
	_, err = tb.SliceChannels(2, 1)
	test.That(t, errors.As(err, &ie), test.ShouldBeTrue)
	_, err = tb.SliceChannels(0, 4)
	test.That(t, errors.As(err, &ie), test.ShouldBeTrue)
}

func TestClone(t *testing.T) {
	tb, err := FromData([]float64{1, 2, 3, 4}, 2, 2)
	test.That(t, err, test.ShouldBeNil)
	c := tb.Clone()
	test.That(t, c.Set(9, 0, 0), test.ShouldBeNil)
	v, err := tb.At(0, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 1)
}
