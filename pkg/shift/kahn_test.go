package shift

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

func kahnWith(t *testing.T, g *Graph, mutate func(*Settings)) []OpAddress {
	t.Helper()
	s := DefaultSettings()
	mutate(&s)
	require.NoError(t, s.Validate())
	order, err := kahn(g.Merge(), &s)
	require.NoError(t, err)
	require.NoError(t, ValidateOrder(g, order))
	return order
}

// lightFirst has inputs 0 and 1 feeding 2. Op 0 opens an alloc of weight 5
// that lives until 2; op 1 uses a private alloc of weight 1.
func lightFirst(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	g.InsertOps([]string{"heavy", "light", "sink"})
	require.NoError(t, g.InsertConstraints([][2]OpAddress{{0, 2}, {1, 2}}))
	x := g.InsertAlloc(NewWeight(5))
	y := g.InsertAlloc(NewWeight(1))
	require.NoError(t, g.InsertOpAlloc([]OpAddress{0, 2}, x))
	require.NoError(t, g.InsertOpAlloc([]OpAddress{1}, y))
	return g
}

func TestKahnTieBreakers(t *testing.T) {
	tests := []struct {
		name string
		tb   KahnTieBreaker
		want []OpAddress
	}{
		{"fifo", KahnFIFO, []OpAddress{0, 1, 2}},
		{"greedy", KahnGreedy, []OpAddress{1, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kahnWith(t, lightFirst(t), func(s *Settings) { s.KahnTieBreaker = tt.tb })
			require.Equal(t, tt.want, got)
		})
	}
}

func TestKahnGreedyTiesPreferLaterCandidate(t *testing.T) {
	got := kahnWith(t, independentPair(t), func(s *Settings) { s.KahnTieBreaker = KahnGreedy })
	require.Equal(t, []OpAddress{1, 0}, got)
}

func TestKahnFIFOQueue(t *testing.T) {
	g := NewGraph()
	g.InsertOps([]string{"a", "b", "c"})
	require.NoError(t, g.InsertConstraint(2, 0))
	got := kahnWith(t, g, func(s *Settings) { s.KahnTieBreaker = KahnFIFO })
	require.Equal(t, []OpAddress{1, 2, 0}, got)
}

func TestKahnPriorities(t *testing.T) {
	g := NewGraph()
	g.InsertOps([]string{"a", "b", "c", "d"})
	require.NoError(t, g.InsertLink(2, 3))

	got := kahnWith(t, g, func(s *Settings) {
		s.KahnTieBreaker = KahnFIFO
		s.Priorities = []Priority{{Op: 3, Value: 2}, {Op: 1, Value: 1}}
	})
	// Op 3 lends its priority to the chain (2 3).
	require.Equal(t, []OpAddress{2, 3, 1, 0}, got)
}

func TestKahnRandomIsSeeded(t *testing.T) {
	g := randomGraph(t, rand.New(rand.NewPCG(3, 3)), 30, 10, 0.05, 0.1)
	seeded := func(seed uint32) []OpAddress {
		return kahnWith(t, g, func(s *Settings) {
			s.KahnTieBreaker = KahnRandom
			s.Seed = seed
		})
	}
	require.Equal(t, seeded(5), seeded(5))
	require.NotEqual(t, seeded(5), seeded(6))
}

func TestKahnExpandsLinks(t *testing.T) {
	g := chainGraph(t)
	require.NoError(t, g.InsertLink(1, 2))
	got := kahnWith(t, g, func(*Settings) {})
	require.Equal(t, []OpAddress{0, 1, 2, 3}, got)
}

func TestKahnCycle(t *testing.T) {
	g := NewGraph()
	g.InsertOps([]string{"a", "b"})
	require.NoError(t, g.InsertConstraints([][2]OpAddress{{0, 1}, {1, 0}}))
	s := DefaultSettings()
	_, err := kahn(g.Merge(), &s)
	require.True(t, errors.Is(err, errors.ErrCodeCycle))
}
