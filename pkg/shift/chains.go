package shift

import (
	"fmt"
	"slices"
	"strings"
)

// IsTightPair reports whether a has exactly one successor b and b has
// exactly one predecessor a.
func (g *Graph) IsTightPair(a, b OpAddress) bool {
	return len(g.ops[a].outs) == 1 && g.ops[a].outs[0] == b && len(g.ops[b].ins) == 1
}

// TightPairs returns every tight pair (a, b), ordered by a.
func (g *Graph) TightPairs() [][2]OpAddress {
	var out [][2]OpAddress
	for a := range g.ops {
		if len(g.ops[a].outs) == 1 {
			if b := g.ops[a].outs[0]; g.IsTightPair(a, b) {
				out = append(out, [2]OpAddress{a, b})
			}
		}
	}
	return out
}

// TightChainFrom returns the longest run of tight pairs starting at a,
// including a.
func (g *Graph) TightChainFrom(a OpAddress) []OpAddress {
	chain := []OpAddress{a}
	for {
		cur := chain[len(chain)-1]
		if len(g.ops[cur].outs) != 1 {
			return chain
		}
		next := g.ops[cur].outs[0]
		if !g.IsTightPair(cur, next) {
			return chain
		}
		chain = append(chain, next)
	}
}

// LinkChains returns every maximal run of linked ops, each in link order,
// ordered by the address of the first member.
func (g *Graph) LinkChains() [][]OpAddress {
	var out [][]OpAddress
	for a := range g.ops {
		if !g.ops[a].HasFwdLink() || g.ops[a].HasBwdLink() {
			continue
		}
		chain := []OpAddress{a}
		for cur := a; g.ops[cur].HasFwdLink(); {
			cur = g.ops[cur].fwdLink
			chain = append(chain, cur)
		}
		out = append(out, chain)
	}
	return out
}

// IdenticalIns returns every op with exactly the same predecessors as a,
// including a. For an op without predecessors these are the input ops.
func (g *Graph) IdenticalIns(a OpAddress) []OpAddress {
	ins := g.ops[a].ins
	if len(ins) == 0 {
		return g.InputOps()
	}
	var out []OpAddress
	for _, sib := range g.ops[ins[0]].outs {
		if slices.Equal(g.ops[sib].ins, ins) {
			out = append(out, sib)
		}
	}
	return out
}

// edgeSet is a set of constraints keyed by (from, to).
type edgeSet map[[2]OpAddress]struct{}

func (g *Graph) edgeSet() edgeSet {
	s := make(edgeSet, g.NEdges())
	for _, e := range g.Edges() {
		s[e] = struct{}{}
	}
	return s
}

// constraintDiff returns the constraints present now but absent from prev,
// sorted.
func (g *Graph) constraintDiff(prev edgeSet) [][2]OpAddress {
	var out [][2]OpAddress
	for _, e := range g.Edges() {
		if _, ok := prev[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// Merged is a graph in which every link chain of its source is collapsed
// into a single op.
type Merged struct {
	Graph *Graph
	// Members lists, for every merged op, the source ops it stands for in
	// schedule order.
	Members [][]OpAddress
	// Parent maps every source op to its merged op.
	Parent []OpAddress
}

// Merge collapses every link chain into one op named "(a b c)" that uses the
// union of its members' allocs and carries every constraint that crosses the
// chain boundary. Merged ops are ordered by their lowest member address and
// allocs keep their addresses and weights. The merged graph has no links.
func (g *Graph) Merge() *Merged {
	parentOf := make([]OpAddress, len(g.ops))
	for i := range parentOf {
		parentOf[i] = NoLink
	}
	groups := make([][]OpAddress, 0, len(g.ops))
	for _, chain := range g.LinkChains() {
		for _, a := range chain {
			parentOf[a] = -2 - len(groups)
		}
		groups = append(groups, chain)
	}

	m := &Merged{Graph: NewGraph(), Parent: make([]OpAddress, len(g.ops))}
	for a := range g.ops {
		switch p := parentOf[a]; {
		case p == NoLink:
			m.Parent[a] = m.Graph.InsertOp(g.ops[a].name)
			m.Members = append(m.Members, []OpAddress{a})
		case slices.Min(groups[-2-p]) == a:
			chain := groups[-2-p]
			names := make([]string, len(chain))
			for i, c := range chain {
				names[i] = g.ops[c].name
			}
			merged := m.Graph.InsertOp(fmt.Sprintf("(%s)", strings.Join(names, " ")))
			for _, c := range chain {
				m.Parent[c] = merged
			}
			m.Members = append(m.Members, chain)
		}
	}

	for _, a := range g.allocs {
		na := m.Graph.InsertAlloc(a.weight)
		for _, op := range a.ops {
			p := m.Parent[op]
			m.Graph.ops[p].allocs, _ = insertSorted(m.Graph.ops[p].allocs, na)
			m.Graph.allocs[na].ops, _ = insertSorted(m.Graph.allocs[na].ops, p)
		}
	}

	for a := range g.ops {
		for _, b := range g.ops[a].outs {
			if pa, pb := m.Parent[a], m.Parent[b]; pa != pb {
				m.Graph.insertConstraint(pa, pb)
			}
		}
	}
	return m
}

// Expand maps an order over merged ops back to an order over source ops.
func (m *Merged) Expand(order []OpAddress) []OpAddress {
	out := make([]OpAddress, 0, len(m.Parent))
	for _, p := range order {
		out = append(out, m.Members[p]...)
	}
	return out
}
