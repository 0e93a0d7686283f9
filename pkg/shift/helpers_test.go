package shift

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// randomGraph builds a graph whose address order is always a valid schedule:
// constraints go from lower to higher addresses and links only join
// consecutive addresses.
func randomGraph(t *testing.T, rng *rand.Rand, nOps, nAllocs int, pEdge, pLink float64) *Graph {
	t.Helper()
	g := NewGraph()
	for i := range nOps {
		g.InsertOp(fmt.Sprintf("op%d", i))
	}
	for a := range nOps {
		for b := a + 1; b < nOps; b++ {
			if rng.Float64() < pEdge {
				require.NoError(t, g.InsertConstraint(a, b))
			}
		}
	}
	for a := 0; a+1 < nOps; a++ {
		if rng.Float64() < pLink {
			require.NoError(t, g.InsertLink(a, a+1))
		}
	}
	for range nAllocs {
		alloc := g.InsertAlloc(NewWeight(float64(1 + rng.IntN(9))))
		users := 1 + rng.IntN(min(4, nOps))
		ops := make([]OpAddress, users)
		for i := range ops {
			ops[i] = rng.IntN(nOps)
		}
		require.NoError(t, g.InsertOpAlloc(ops, alloc))
	}
	return g
}

// chainGraph builds A→B→C→D with one alloc of weight 1 used by A and D.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	ops := g.InsertOps([]string{"A", "B", "C", "D"})
	require.NoError(t, g.InsertConstraints([][2]OpAddress{{ops[0], ops[1]}, {ops[1], ops[2]}, {ops[2], ops[3]}}))
	a := g.InsertAlloc(NewWeight(1))
	require.NoError(t, g.InsertOpAlloc([]OpAddress{ops[0], ops[3]}, a))
	return g
}

// independentPair builds two unconstrained ops A and B; A uses an alloc of
// weight 10 alone and shares one of weight 1 with B.
func independentPair(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	a, b := g.InsertOp("A"), g.InsertOp("B")
	heavy := g.InsertAlloc(NewWeight(10))
	light := g.InsertAlloc(NewWeight(1))
	require.NoError(t, g.InsertOpAlloc([]OpAddress{a}, heavy))
	require.NoError(t, g.InsertOpAlloc([]OpAddress{a, b}, light))
	return g
}

func addressOrder(n int) []OpAddress {
	out := make([]OpAddress, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func debugSettings(algo RotationAlgo) Settings {
	s := DefaultSettings()
	s.RotationAlgo = algo
	s.DebugMode = true
	return s
}

// linkedSiblings builds a → b and a ⇒ c. b and c share their only input,
// and c must follow a directly, so the only valid order is a c b.
func linkedSiblings(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	g.InsertOps([]string{"a", "b", "c"})
	require.NoError(t, g.InsertConstraint(0, 1))
	require.NoError(t, g.InsertLink(0, 2))
	return g
}
