package shift

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// WeightSize is the number of components in a [Weight].
const WeightSize = 3

// Weight is a multi-component allocation size, compared lexicographically
// with component 0 most significant. Plain scalar weights live in the centre
// component so a caller can place a dominating objective before it or a
// tie-breaking objective after it.
type Weight [WeightSize]float64

// Zero is the additive identity.
var Zero Weight

// NewWeight returns a scalar weight.
func NewWeight(x float64) Weight {
	var w Weight
	w[WeightSize/2] = x
	return w
}

// WeightFromSlice accepts either a single scalar or exactly WeightSize components.
func WeightFromSlice(v []float64) (Weight, error) {
	switch len(v) {
	case 1:
		return NewWeight(v[0]), nil
	case WeightSize:
		var w Weight
		copy(w[:], v)
		return w, nil
	}
	return Zero, errors.New(errors.ErrCodeInvalidFormat,
		"weight must have 1 or %d components, got %d", WeightSize, len(v))
}

func (w Weight) Add(o Weight) Weight {
	for i := range w {
		w[i] += o[i]
	}
	return w
}

func (w Weight) Sub(o Weight) Weight {
	for i := range w {
		w[i] -= o[i]
	}
	return w
}

func (w Weight) Neg() Weight {
	for i := range w {
		w[i] = -w[i]
	}
	return w
}

// Scale multiplies every component by k.
func (w Weight) Scale(k float64) Weight {
	for i := range w {
		w[i] *= k
	}
	return w
}

// Abs returns the component-wise absolute value.
func (w Weight) Abs() Weight {
	for i := range w {
		w[i] = math.Abs(w[i])
	}
	return w
}

// Cmp returns -1, 0 or +1 comparing w to o lexicographically.
func (w Weight) Cmp(o Weight) int {
	for i := range w {
		switch {
		case w[i] < o[i]:
			return -1
		case w[i] > o[i]:
			return 1
		}
	}
	return 0
}

func (w Weight) Less(o Weight) bool   { return w.Cmp(o) < 0 }
func (w Weight) LessEq(o Weight) bool { return w.Cmp(o) <= 0 }
func (w Weight) IsZero() bool         { return w == Zero }

// Max returns the larger of w and o.
func (w Weight) Max(o Weight) Weight {
	if w.Less(o) {
		return o
	}
	return w
}

// Min returns the smaller of w and o.
func (w Weight) Min(o Weight) Weight {
	if o.Less(w) {
		return o
	}
	return w
}

// Scalar returns the centre component.
func (w Weight) Scalar() float64 { return w[WeightSize/2] }

// String prints only the centre component when the others are zero.
func (w Weight) String() string {
	if w[0] == 0 && w[2] == 0 {
		return strconv.FormatFloat(w[1], 'g', -1, 64)
	}
	parts := make([]string, len(w))
	for i, x := range w {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ","))
}

// withinRelTol reports whether a and b agree to tol relative to 1+|b| in
// every component.
func withinRelTol(a, b Weight, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i])/(1+math.Abs(b[i])) > tol {
			return false
		}
	}
	return true
}
