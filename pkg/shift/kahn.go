package shift

import (
	"math/rand/v2"
	"slices"
)

// newRand returns the generator used wherever a seed is consumed.
func newRand(seed uint32) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// schedulable reports whether every op of g can be ordered.
func schedulable(g *Graph) bool {
	nIn := make([]int, g.NOps())
	var ready []OpAddress
	for i := range g.ops {
		nIn[i] = len(g.ops[i].ins)
		if nIn[i] == 0 {
			ready = append(ready, i)
		}
	}
	n := 0
	for len(ready) > 0 {
		a := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		n++
		for _, b := range g.ops[a].outs {
			if nIn[b]--; nIn[b] == 0 {
				ready = append(ready, b)
			}
		}
	}
	return n == g.NOps()
}

// kahnState tracks the liveness bookkeeping of the greedy tie breaker.
type kahnState struct {
	g           *Graph
	live        []bool
	outstanding []int
}

// deltaLive is the change in live weight caused by scheduling op next: allocs
// it is the last user of die, allocs it is the first user of are born.
func (k *kahnState) deltaLive(op OpAddress) Weight {
	var d Weight
	for _, a := range k.g.ops[op].allocs {
		w := k.g.allocs[a].weight
		if k.outstanding[a] == 1 {
			d = d.Sub(w)
		}
		if !k.live[a] {
			d = d.Add(w)
		}
	}
	return d
}

func (k *kahnState) schedule(op OpAddress) {
	for _, a := range k.g.ops[op].allocs {
		k.live[a] = true
		k.outstanding[a]--
	}
}

// kahn returns a topological order of the merged graph expanded back to
// source ops. Among ready ops, those with the highest priority are offered to
// the tie breaker.
func kahn(m *Merged, s *Settings) ([]OpAddress, error) {
	g := m.Graph
	n := g.NOps()

	prio := make([]float64, n)
	for _, p := range s.Priorities {
		merged := m.Parent[p.Op]
		prio[merged] = max(prio[merged], p.Value)
	}

	k := &kahnState{g: g, live: make([]bool, g.NAllocs()), outstanding: make([]int, g.NAllocs())}
	for i := range g.allocs {
		k.outstanding[i] = len(g.allocs[i].ops)
	}
	rng := newRand(s.Seed)

	nIn := make([]int, n)
	var ready []OpAddress
	for i := range g.ops {
		nIn[i] = len(g.ops[i].ins)
		if nIn[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]OpAddress, 0, n)
	candidates := make([]int, 0, n)
	for len(ready) > 0 {
		candidates = candidates[:0]
		top := prio[ready[0]]
		for _, op := range ready {
			top = max(top, prio[op])
		}
		for i, op := range ready {
			if prio[op] == top {
				candidates = append(candidates, i)
			}
		}

		var pick int
		switch s.KahnTieBreaker {
		case KahnRandom:
			pick = candidates[rng.IntN(len(candidates))]
		case KahnGreedy:
			pick = candidates[0]
			best := k.deltaLive(ready[pick])
			for _, i := range candidates[1:] {
				if d := k.deltaLive(ready[i]); d.LessEq(best) {
					pick, best = i, d
				}
			}
		default:
			pick = candidates[0]
		}

		op := ready[pick]
		ready = slices.Delete(ready, pick, pick+1)
		order = append(order, op)
		k.schedule(op)
		for _, b := range g.ops[op].outs {
			if nIn[b]--; nIn[b] == 0 {
				ready = append(ready, b)
			}
		}
	}

	if len(order) != n {
		return nil, cycleError(g)
	}
	return m.Expand(order), nil
}
