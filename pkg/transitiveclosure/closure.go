// Package transitiveclosure maintains the reachability relation of a DAG as
// one pair of bit rows per node.
//
// # Layout
//
// For a graph of n nodes a [Closure] holds 2n rows of n bits each, sized once
// at construction: row Fwd(i) has bit j set when j must come after i, row
// Bwd(i) has bit j set when j must come before i. Queries are O(1) for a pair
// and O(n/64) for counting.
//
// # Updates
//
// New edges are folded in with [Closure.Update]. Each new edge from→to ORs
// the ancestors of from into every descendant of to and vice versa, which is
// cheaper than a rebuild while the number of new edges is small relative to
// the graph. [ShouldRebuild] is the switch callers use to pick between the
// two.
//
// # Extremum statuses
//
// For a set of nodes (typically the users of one allocation),
// [Closure.ExtremumStatuses] classifies each node as definitely, possibly or
// never the first and the final of the set in any topological order.
package transitiveclosure

import (
	"github.com/soniakeys/bits"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// Edge is a precedence constraint: Edge[0] before Edge[1].
type Edge = [2]int

// Closure is the bit-matrix reachability index of a DAG.
//
// Closure is not safe for concurrent use: counting queries share a scratch row.
type Closure struct {
	n       int
	fwd     []bits.Bits
	bwd     []bits.Bits
	scratch bits.Bits
}

// New builds the closure of the graph with nOps nodes and the given edges.
// It returns an [errors.ErrCodeCycle] error if the edges contain a cycle.
func New(nOps int, edges []Edge) (*Closure, error) {
	outs := make([][]int, nOps)
	ins := make([][]int, nOps)
	for _, e := range edges {
		if err := checkEdge(e, nOps); err != nil {
			return nil, err
		}
		outs[e[0]] = append(outs[e[0]], e[1])
		ins[e[1]] = append(ins[e[1]], e[0])
	}

	order := kahn(outs, ins)
	if len(order) != nOps {
		return nil, errors.New(errors.ErrCodeCycle,
			"only %d of %d nodes can be ordered", len(order), nOps)
	}

	c := &Closure{
		n:       nOps,
		fwd:     make([]bits.Bits, nOps),
		bwd:     make([]bits.Bits, nOps),
		scratch: bits.New(nOps),
	}
	for i := range nOps {
		c.fwd[i] = bits.New(nOps)
		c.bwd[i] = bits.New(nOps)
	}
	for _, b := range order {
		for _, a := range ins[b] {
			c.bwd[b].Or(c.bwd[b], c.bwd[a])
			c.bwd[b].SetBit(a, 1)
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		a := order[i]
		for _, b := range outs[a] {
			c.fwd[a].Or(c.fwd[a], c.fwd[b])
			c.fwd[a].SetBit(b, 1)
		}
	}
	return c, nil
}

// ShouldRebuild reports whether folding nNewEdges into a closure of nOps
// nodes is expected to cost more than rebuilding it.
func ShouldRebuild(nOps, nNewEdges int) bool {
	return nNewEdges*10 >= nOps
}

// Update folds new edges into the closure. An edge that would close a cycle
// is rejected with [errors.ErrCodeCycle] and leaves the closure as it was
// before that edge; edges before it remain applied.
func (c *Closure) Update(edges []Edge) error {
	for _, e := range edges {
		if err := c.add(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Closure) add(e Edge) error {
	if err := checkEdge(e, c.n); err != nil {
		return err
	}
	from, to := e[0], e[1]
	if c.Constrained(to, from) {
		return errors.New(errors.ErrCodeCycle, "edge %d->%d closes a cycle", from, to)
	}
	if c.Constrained(from, to) {
		return nil
	}

	// Every descendant of to gains from and its ancestors.
	c.bwd[to].Or(c.bwd[to], c.bwd[from])
	c.bwd[to].SetBit(from, 1)
	for x := c.fwd[to].OneFrom(0); x >= 0; x = c.fwd[to].OneFrom(x + 1) {
		c.bwd[x].Or(c.bwd[x], c.bwd[from])
		c.bwd[x].SetBit(from, 1)
	}

	// Every ancestor of from gains to and its descendants.
	c.fwd[from].Or(c.fwd[from], c.fwd[to])
	c.fwd[from].SetBit(to, 1)
	for y := c.bwd[from].OneFrom(0); y >= 0; y = c.bwd[from].OneFrom(y + 1) {
		c.fwd[y].Or(c.fwd[y], c.fwd[to])
		c.fwd[y].SetBit(to, 1)
	}
	return nil
}

// NOps returns the number of nodes the closure was built for.
func (c *Closure) NOps() int { return c.n }

// Constrained reports whether a must come before b.
func (c *Closure) Constrained(a, b int) bool {
	return c.fwd[a].Bit(b) == 1
}

// Unconstrained reports whether a and b are distinct and may appear in
// either order.
func (c *Closure) Unconstrained(a, b int) bool {
	return a != b && !c.Constrained(a, b) && !c.Constrained(b, a)
}

// UnconstrainedWith returns, in ascending order, every node that may appear
// on either side of a.
func (c *Closure) UnconstrainedWith(a int) []int {
	var out []int
	for x := range c.n {
		if c.Unconstrained(a, x) {
			out = append(out, x)
		}
	}
	return out
}

// Earliest returns the lowest schedule position a can take.
func (c *Closure) Earliest(a int) int {
	return c.bwd[a].OnesCount()
}

// Latest returns the highest schedule position a can take.
func (c *Closure) Latest(a int) int {
	return c.n - 1 - c.fwd[a].OnesCount()
}

// NPostPost returns the number of nodes that must come after both a and b.
func (c *Closure) NPostPost(a, b int) int {
	c.scratch.And(c.fwd[a], c.fwd[b])
	return c.scratch.OnesCount()
}

// Redundants returns the edges whose ordering is already implied by another
// path, i.e. edges a→b for which some other predecessor b' of b is itself
// constrained to come after a. The closure must include edges.
func (c *Closure) Redundants(edges []Edge) []Edge {
	ins := make(map[int][]int)
	for _, e := range edges {
		ins[e[1]] = append(ins[e[1]], e[0])
	}
	var out []Edge
	for _, e := range edges {
		for _, other := range ins[e[1]] {
			if other != e[0] && c.Constrained(e[0], other) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func checkEdge(e Edge, n int) error {
	if err := errors.ValidateAddress("op", e[0], n); err != nil {
		return err
	}
	if err := errors.ValidateAddress("op", e[1], n); err != nil {
		return err
	}
	if e[0] == e[1] {
		return errors.New(errors.ErrCodeCycle, "self edge on %d", e[0])
	}
	return nil
}

func kahn(outs, ins [][]int) []int {
	nIn := make([]int, len(ins))
	var ready []int
	for i := range ins {
		nIn[i] = len(ins[i])
		if nIn[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]int, 0, len(ins))
	for len(ready) > 0 {
		a := ready[0]
		ready = ready[1:]
		order = append(order, a)
		for _, b := range outs[a] {
			nIn[b]--
			if nIn[b] == 0 {
				ready = append(ready, b)
			}
		}
	}
	return order
}
