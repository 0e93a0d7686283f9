package shift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

func TestWeightCmp(t *testing.T) {
	tests := []struct {
		name string
		a, b Weight
		want int
	}{
		{"equal", NewWeight(3), NewWeight(3), 0},
		{"centre", NewWeight(2), NewWeight(3), -1},
		{"leading dominates", Weight{1, 0, 0}, Weight{0, 100, 100}, 1},
		{"trailing breaks ties", Weight{0, 5, 1}, Weight{0, 5, 2}, -1},
		{"negative", NewWeight(-1), Zero, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cmp(tt.b); got != tt.want {
				t.Errorf("Cmp = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeightArithmetic(t *testing.T) {
	a := Weight{1, 2, 3}
	b := Weight{0.5, -1, 4}
	require.Equal(t, Weight{1.5, 1, 7}, a.Add(b))
	require.Equal(t, Weight{0.5, 3, -1}, a.Sub(b))
	require.Equal(t, Weight{-1, -2, -3}, a.Neg())
	require.Equal(t, Weight{2, 4, 6}, a.Scale(2))
	require.Equal(t, Weight{0.5, 1, 4}, b.Abs())
	require.Equal(t, a, a.Max(b))
	require.Equal(t, b, a.Min(b))
	require.Equal(t, 2.0, a.Scalar())
	require.True(t, Zero.IsZero())
	require.True(t, a.LessEq(a))
	require.False(t, a.Less(a))
}

func TestWeightFromSlice(t *testing.T) {
	w, err := WeightFromSlice([]float64{7})
	require.NoError(t, err)
	require.Equal(t, NewWeight(7), w)

	w, err = WeightFromSlice([]float64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, Weight{1, 2, 3}, w)

	_, err = WeightFromSlice([]float64{1, 2})
	require.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestWeightString(t *testing.T) {
	if got := NewWeight(2.5).String(); got != "2.5" {
		t.Errorf("String() = %q, want 2.5", got)
	}
	if got := (Weight{1, 2, 0}).String(); got != "(1,2,0)" {
		t.Errorf("String() = %q, want (1,2,0)", got)
	}
}

func TestWithinRelTol(t *testing.T) {
	require.True(t, withinRelTol(NewWeight(1e6), NewWeight(1e6+1), 1e-5))
	require.False(t, withinRelTol(NewWeight(1), NewWeight(1.1), 1e-5))
	require.True(t, withinRelTol(Zero, NewWeight(1e-7), 1e-5))
}
