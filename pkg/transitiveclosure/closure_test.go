package transitiveclosure

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// diamond: 0 -> {1, 2} -> 3, plus an isolated node 4.
func diamond(t *testing.T) *Closure {
	t.Helper()
	c, err := New(5, []Edge{{0, 1}, {0, 2}, {1, 3}, {2, 3}})
	require.NoError(t, err)
	return c
}

func TestConstrained(t *testing.T) {
	c := diamond(t)
	tests := []struct {
		a, b int
		want bool
	}{
		{0, 1, true},
		{0, 3, true},
		{1, 3, true},
		{3, 0, false},
		{1, 2, false},
		{2, 1, false},
		{0, 4, false},
	}
	for _, tt := range tests {
		if got := c.Constrained(tt.a, tt.b); got != tt.want {
			t.Errorf("Constrained(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if !c.Unconstrained(1, 2) {
		t.Error("Unconstrained(1, 2) = false, want true")
	}
	if c.Unconstrained(1, 1) {
		t.Error("Unconstrained(1, 1) = true, want false")
	}
	if diff := cmp.Diff([]int{2, 4}, c.UnconstrainedWith(1)); diff != "" {
		t.Errorf("UnconstrainedWith(1) mismatch (-want +got):\n%s", diff)
	}
}

func TestEarliestLatest(t *testing.T) {
	c := diamond(t)
	tests := []struct {
		op               int
		earliest, latest int
	}{
		{0, 0, 1},
		{1, 1, 3},
		{3, 3, 4},
		{4, 0, 4},
	}
	for _, tt := range tests {
		if got := c.Earliest(tt.op); got != tt.earliest {
			t.Errorf("Earliest(%d) = %d, want %d", tt.op, got, tt.earliest)
		}
		if got := c.Latest(tt.op); got != tt.latest {
			t.Errorf("Latest(%d) = %d, want %d", tt.op, got, tt.latest)
		}
	}
}

func TestNPostPost(t *testing.T) {
	c := diamond(t)
	if got := c.NPostPost(1, 2); got != 1 {
		t.Errorf("NPostPost(1, 2) = %d, want 1", got)
	}
	if got := c.NPostPost(0, 4); got != 0 {
		t.Errorf("NPostPost(0, 4) = %d, want 0", got)
	}
}

func TestNewCycle(t *testing.T) {
	_, err := New(3, []Edge{{0, 1}, {1, 2}, {2, 0}})
	if !errors.Is(err, errors.ErrCodeCycle) {
		t.Fatalf("New() error = %v, want CYCLE", err)
	}
	_, err = New(3, []Edge{{0, 3}})
	if !errors.Is(err, errors.ErrCodeInvalidAddress) {
		t.Fatalf("New() error = %v, want INVALID_ADDRESS", err)
	}
}

func TestUpdate(t *testing.T) {
	c := diamond(t)
	require.NoError(t, c.Update([]Edge{{3, 4}}))
	if !c.Constrained(0, 4) {
		t.Error("Constrained(0, 4) = false after 3->4, want true")
	}
	if got := c.Earliest(4); got != 4 {
		t.Errorf("Earliest(4) = %d, want 4", got)
	}

	err := c.Update([]Edge{{4, 1}})
	if !errors.Is(err, errors.ErrCodeCycle) {
		t.Fatalf("Update(4->1) error = %v, want CYCLE", err)
	}
	if c.Constrained(4, 1) {
		t.Error("rejected edge was applied")
	}
}

func TestUpdateMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := range 20 {
		n := 5 + rng.IntN(30)
		var all []Edge
		for range 3 * n {
			a, b := rng.IntN(n), rng.IntN(n)
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			all = append(all, Edge{a, b})
		}
		split := len(all) / 2

		inc, err := New(n, all[:split])
		require.NoError(t, err)
		require.NoError(t, inc.Update(all[split:]))
		full, err := New(n, all)
		require.NoError(t, err)

		for a := range n {
			for b := range n {
				if inc.Constrained(a, b) != full.Constrained(a, b) {
					t.Fatalf("trial %d: Constrained(%d, %d) incremental=%v rebuilt=%v",
						trial, a, b, inc.Constrained(a, b), full.Constrained(a, b))
				}
			}
		}
	}
}

func TestRedundants(t *testing.T) {
	edges := []Edge{{0, 1}, {1, 2}, {0, 2}}
	c, err := New(3, edges)
	require.NoError(t, err)
	if diff := cmp.Diff([]Edge{{0, 2}}, c.Redundants(edges)); diff != "" {
		t.Errorf("Redundants() mismatch (-want +got):\n%s", diff)
	}
}

func TestShouldRebuild(t *testing.T) {
	if ShouldRebuild(100, 9) {
		t.Error("ShouldRebuild(100, 9) = true, want false")
	}
	if !ShouldRebuild(100, 10) {
		t.Error("ShouldRebuild(100, 10) = false, want true")
	}
}
