package shift

import (
	tc "github.com/matzehuels/shiftsched/pkg/transitiveclosure"
)

// boundChanges holds, for every op, the least and greatest change in total
// liveness that moving the op within its feasible range can cause, derived
// from the op's first/final status inside each alloc it uses.
type boundChanges struct {
	lower []Weight
	upper []Weight
}

func computeBoundChanges(g *Graph, c *tc.Closure) boundChanges {
	b := boundChanges{
		lower: make([]Weight, g.NOps()),
		upper: make([]Weight, g.NOps()),
	}
	for i := range g.allocs {
		a := &g.allocs[i]
		for j, s := range c.ExtremumStatuses(a.ops) {
			op := a.ops[j]
			b.lower[op], b.upper[op] = updateFromFirstFinal(b.lower[op], b.upper[op], a.weight, s)
		}
	}
	return b
}

// updateFromFirstFinal adds the contribution of one alloc of weight w to an
// op's bounds. Passing -w removes a contribution added earlier.
func updateFromFirstFinal(lower, upper, w Weight, s tc.Status) (Weight, Weight) {
	switch {
	case s.First == tc.Yes && s.Final == tc.Yes:
	case s.First == tc.Yes && s.Final == tc.No:
		lower, upper = lower.Add(w), upper.Add(w)
	case s.First == tc.No && s.Final == tc.Yes:
		lower, upper = lower.Sub(w), upper.Sub(w)
	case s.First == tc.No && s.Final == tc.No:
	case s.First == tc.Maybe && s.Final == tc.Maybe:
		lower, upper = lower.Sub(w), upper.Add(w)
	case s.Final == tc.Maybe:
		// First is Yes or No.
		if s.First == tc.Yes {
			upper = upper.Add(w)
		} else {
			lower = lower.Sub(w)
		}
	case s.First == tc.Maybe:
		// Final is Yes or No.
		if s.Final == tc.Yes {
			lower = lower.Sub(w)
		} else {
			upper = upper.Add(w)
		}
	}
	return lower, upper
}
