package shift

import (
	"github.com/matzehuels/shiftsched/pkg/errors"
)

// ValidateOrder checks that order is a permutation of the ops of g in which
// every op comes after all of its predecessors and every linked pair is
// adjacent, forward op first.
func ValidateOrder(g *Graph, order []OpAddress) error {
	if len(order) != g.NOps() {
		return errors.New(errors.ErrCodeInvalidOrder,
			"order has %d entries, graph has %d ops", len(order), g.NOps())
	}
	pos := make([]int, g.NOps())
	for i := range pos {
		pos[i] = -1
	}
	for i, op := range order {
		if op < 0 || op >= g.NOps() {
			return errors.New(errors.ErrCodeInvalidOrder, "position %d: op %d out of range", i, op)
		}
		if pos[op] >= 0 {
			return errors.New(errors.ErrCodeInvalidOrder, "op %d appears at %d and %d", op, pos[op], i)
		}
		pos[op] = i
	}
	for a := range g.ops {
		op := &g.ops[a]
		for _, in := range op.ins {
			if pos[in] >= pos[a] {
				return errors.New(errors.ErrCodeInvalidOrder,
					"op %d (%s) at %d does not follow its predecessor %d at %d",
					a, op.name, pos[a], in, pos[in])
			}
		}
		if op.HasFwdLink() && pos[op.fwdLink] != pos[a]+1 {
			return errors.New(errors.ErrCodeInvalidOrder,
				"linked ops %d and %d are at %d and %d", a, op.fwdLink, pos[a], pos[op.fwdLink])
		}
	}
	return nil
}

// Liveness returns, for every position of order, the total weight of allocs
// whose live interval covers it. order must be valid for g.
func Liveness(g *Graph, order []OpAddress) []Weight {
	s := &scheduled{g: g, schToOp: order, opToSch: make([]int, len(order))}
	for i, op := range order {
		s.opToSch[op] = i
	}
	s.allocToSch = make([][]int, g.NAllocs())
	for a := range g.allocs {
		s.refreshAlloc(a)
	}
	return s.livenessFromScratch()
}

// SumLiveness is the sum of [Liveness] over all positions.
func SumLiveness(g *Graph, order []OpAddress) Weight {
	var sum Weight
	for _, l := range Liveness(g, order) {
		sum = sum.Add(l)
	}
	return sum
}

// MaxLiveness is the largest value of [Liveness], or zero for an empty graph.
func MaxLiveness(g *Graph, order []OpAddress) Weight {
	var m Weight
	for i, l := range Liveness(g, order) {
		if i == 0 || m.Less(l) {
			m = l
		}
	}
	return m
}
