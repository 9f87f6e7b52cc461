package objectdetection

import (
	"testing"

	"go.viam.com/test"
)

func TestNMSSuppressesOverlap(t *testing.T) {
	// two boxes of the same class with IoU 0.9
	strong := Detection{Box: Box{X: 0.5, Y: 0.5, W: 0.4, H: 0.4}, Class: 0, Probability: 0.9}
	weak := Detection{Box: Box{X: 0.5, Y: 0.5, W: 0.4, H: 0.36}, Class: 0, Probability: 0.6}
	test.That(t, strong.Box.IoU(weak.Box), test.ShouldAlmostEqual, 0.9, 1e-12)

	out := NonMaxSuppression([]Detection{weak, strong}, 0.5)
	test.That(t, out, test.ShouldHaveLength, 1)
	test.That(t, out[0].Probability, test.ShouldEqual, 0.9)
}

func TestNMSKeepsAcrossClasses(t *testing.T) {
	a := Detection{Box: Box{X: 0.5, Y: 0.5, W: 0.4, H: 0.4}, Class: 1, Probability: 0.7}
	b := Detection{Box: Box{X: 0.5, Y: 0.5, W: 0.4, H: 0.4}, Class: 0, Probability: 0.9}
	out := NonMaxSuppression([]Detection{a, b}, 0.5)
	test.That(t, out, test.ShouldHaveLength, 2)
	// merged list is sorted by descending probability
	test.That(t, out[0].Class, test.ShouldEqual, 0)
	test.That(t, out[1].Class, test.ShouldEqual, 1)
}

func TestNMSEmittedPairsBelowThreshold(t *testing.T) {
	dets := []Detection{
		{Box: Box{X: 0.2, Y: 0.2, W: 0.2, H: 0.2}, Class: 0, Probability: 0.8},
		{Box: Box{X: 0.25, Y: 0.2, W: 0.2, H: 0.2}, Class: 0, Probability: 0.7},
		{Box: Box{X: 0.8, Y: 0.8, W: 0.2, H: 0.2}, Class: 0, Probability: 0.6},
		{Box: Box{X: 0.8, Y: 0.8, W: 0.22, H: 0.2}, Class: 0, Probability: 0.5},
	}
	thresh := 0.4
	out := NonMaxSuppression(dets, thresh)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			test.That(t, out[i].Box.IoU(out[j].Box), test.ShouldBeLessThan, thresh)
		}
	}
}

func TestNMSDeterministicTies(t *testing.T) {
	// equal probabilities, disjoint boxes: input (decode) order is kept
	a := Detection{Box: Box{X: 0.2, Y: 0.2, W: 0.1, H: 0.1}, Class: 0, Probability: 0.5}
	b := Detection{Box: Box{X: 0.8, Y: 0.8, W: 0.1, H: 0.1}, Class: 0, Probability: 0.5}
	out := NonMaxSuppression([]Detection{a, b}, 0.5)
	test.That(t, out, test.ShouldHaveLength, 2)
	test.That(t, out[0].Box.X, test.ShouldEqual, 0.2)
	test.That(t, out[1].Box.X, test.ShouldEqual, 0.8)

	out = NonMaxSuppression([]Detection{b, a}, 0.5)
	test.That(t, out[0].Box.X, test.ShouldEqual, 0.8)
	test.That(t, out[1].Box.X, test.ShouldEqual, 0.2)
}

func TestNMSEmpty(t *testing.T) {
	out := NonMaxSuppression(nil, 0.5)
	test.That(t, out, test.ShouldHaveLength, 0)
}
