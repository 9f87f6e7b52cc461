package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestForEachSpan(t *testing.T) {
	out := make([]int, 103)
	ForEachSpan(len(out), func(from, to int) {
		for i := from; i < to; i++ {
			out[i] = i * i
		}
	})
	for i, v := range out {
		test.That(t, v, test.ShouldEqual, i*i)
	}
}

func TestForEachSpanSmall(t *testing.T) {
	// fewer work items than workers
	hits := make([]int, 2)
	ForEachSpan(len(hits), func(from, to int) {
		for i := from; i < to; i++ {
			hits[i]++
		}
	})
	test.That(t, hits[0], test.ShouldEqual, 1)
	test.That(t, hits[1], test.ShouldEqual, 1)

	called := false
	ForEachSpan(0, func(from, to int) { called = true })
	test.That(t, called, test.ShouldBeFalse)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(-0.5, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, Clamp(1.5, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(0.25, 0, 1), test.ShouldEqual, 0.25)
}
