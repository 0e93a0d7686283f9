package shift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

func TestGenerate(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.LinkProb = 0.2

	g, err := Generate(opts)
	require.NoError(t, err)
	require.Equal(t, opts.Ops, g.NOps())
	require.Equal(t, opts.Allocs, g.NAllocs())
	require.NoError(t, ValidateOrder(g, addressOrder(g.NOps())))

	again, err := Generate(opts)
	require.NoError(t, err)
	require.True(t, g.Equal(again), "same options must give the same graph")

	opts.Seed++
	other, err := Generate(opts)
	require.NoError(t, err)
	require.False(t, g.Equal(other))

	for a := range g.NAllocs() {
		w := g.Alloc(a).Weight().Scalar()
		require.GreaterOrEqual(t, w, 1.0)
		require.LessOrEqual(t, w, float64(opts.MaxWeight))
		require.LessOrEqual(t, g.Alloc(a).NOps(), opts.MaxUsers)
	}
}

func TestGenerateInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts GenerateOptions
	}{
		{"negative ops", GenerateOptions{Ops: -1}},
		{"allocs without ops", GenerateOptions{Allocs: 3}},
		{"edge prob", GenerateOptions{Ops: 3, EdgeProb: 1.5}},
		{"link prob", GenerateOptions{Ops: 3, LinkProb: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.opts)
			require.True(t, errors.Is(err, errors.ErrCodeInvalidSetting), "got %v", err)
		})
	}
}

func TestGenerateSchedules(t *testing.T) {
	g, err := Generate(GenerateOptions{Ops: 25, Allocs: 20, EdgeProb: 0.1, LinkProb: 0.1, MaxWeight: 5, MaxUsers: 3, Seed: 7})
	require.NoError(t, err)
	res, err := Schedule(g, debugSettings(RotationRipple))
	require.NoError(t, err)
	require.NoError(t, ValidateOrder(g, res.Order))
	require.True(t, res.Summary.FinalSumLiveness.LessEq(res.Summary.InitialSumLiveness))
}
