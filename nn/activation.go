package nn

import (
	"math"

	"github.com/pkg/errors"
)

// Activation is an elementwise nonlinearity applied after a layer's sum.
type Activation int

// The supported activation kinds.
const (
	Linear Activation = iota
	Leaky
	Logistic
)

const leakySlope = 0.1

// ParseActivation maps a config-file activation name to its kind.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "linear", "":
		return Linear, nil
	case "leaky":
		return Leaky, nil
	case "logistic":
		return Logistic, nil
	default:
		return Linear, errors.Errorf("unsupported activation %q", name)
	}
}

func (a Activation) String() string {
	switch a {
	case Leaky:
		return "leaky"
	case Logistic:
		return "logistic"
	default:
		return "linear"
	}
}

// Apply evaluates the activation at x.
func (a Activation) Apply(x float64) float64 {
	switch a {
	case Leaky:
		if x < 0 {
			return leakySlope * x
		}
		return x
	case Logistic:
		return Sigmoid(x)
	default:
		return x
	}
}

// applySlice activates data in place.
func (a Activation) applySlice(data []float64) {
	if a == Linear {
		return
	}
	for i, x := range data {
		data[i] = a.Apply(x)
	}
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
