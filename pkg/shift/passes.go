package shift

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	tc "github.com/matzehuels/shiftsched/pkg/transitiveclosure"
)

// linkTightDrops links every tight pair whose successor can gain no more
// from being delayed than its predecessor loses, so keeping them adjacent is
// never worse.
func (s *strengthener) linkTightDrops() (bool, error) {
	changed := false
	lower, upper := s.bounds.lower, s.bounds.upper
	for _, p := range s.g.TightPairs() {
		before, after := p[0], p[1]
		if s.g.ops[before].HasFwdLink() || s.g.ops[after].HasBwdLink() {
			continue
		}
		if upper[after].LessEq(lower[before]) {
			if err := s.g.InsertLink(before, after); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// linkCloseTightPairs links a tight pair when no op that could be scheduled
// between them has a bound interval overlapping the pair's combined
// interval, so no such op can profit from separating them.
func (s *strengthener) linkCloseTightPairs() (bool, error) {
	changed := false
	lower, upper := s.bounds.lower, s.bounds.upper
	for _, p := range s.g.TightPairs() {
		before, after := p[0], p[1]
		if s.g.ops[before].HasFwdLink() || s.g.ops[after].HasBwdLink() {
			continue
		}
		lo := lower[before].Min(lower[after])
		hi := upper[before].Max(upper[after])
		canTie := true
		for _, id := range s.tc.UnconstrainedWith(before) {
			if lo.Less(upper[id]) && lower[id].Less(hi) {
				canTie = false
				break
			}
		}
		if canTie {
			if err := s.g.InsertLink(before, after); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// constrainWeightSeparatedGroups orders a before b, where a and b share all
// predecessors, when everything a could bring forward is cheaper than
// anything b could bring forward.
func (s *strengthener) constrainWeightSeparatedGroups() (bool, error) {
	var pending []tc.Edge
	lower, upper := s.bounds.lower, s.bounds.upper
	processed := mapset.NewThreadUnsafeSet[OpAddress]()

	for a0 := range s.g.ops {
		if processed.Contains(a0) {
			continue
		}
		group := s.g.IdenticalIns(a0)
		processed.Append(group...)
		if len(group) < 2 {
			continue
		}
		for _, a := range group {
			for _, b := range group {
				if a == b || !s.tc.Unconstrained(a, b) || !upper[a].LessEq(lower[b]) {
					continue
				}

				// Lowest bound among b and the ops that could follow b before a.
				lb := lower[b]
				for _, x := range s.reachable(b, func(x OpAddress) bool { return !s.tc.Constrained(a, x) }) {
					lb = lb.Min(lower[x])
				}
				if !upper[a].LessEq(lb) {
					continue
				}

				nPostBoth := s.tc.NPostPost(a, b)
				candidates := s.reachable(a, func(x OpAddress) bool {
					return x != b && !s.tc.Constrained(b, x) &&
						upper[x].LessEq(lb) && s.tc.NPostPost(b, x) == nPostBoth
				})
				strict := slices.ContainsFunc(candidates, func(x OpAddress) bool { return upper[x].Less(lb) })
				if a > b && !strict {
					continue
				}
				for _, c := range candidates {
					pending = append(pending, tc.Edge{c, b})
				}
			}
		}
	}
	return s.commitConstraints(pending)
}

// reachable walks successors depth first from root, entering only ops that
// satisfy keep. root is included when it satisfies keep.
func (s *strengthener) reachable(root OpAddress, keep func(OpAddress) bool) []OpAddress {
	if !keep(root) {
		return nil
	}
	seen := mapset.NewThreadUnsafeSet(root)
	out := []OpAddress{root}
	stack := []OpAddress{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, x := range s.g.ops[cur].outs {
			if seen.Contains(x) || !keep(x) {
				continue
			}
			seen.Add(x)
			out = append(out, x)
			stack = append(stack, x)
		}
	}
	return out
}

// constrainParallelChains orders two tight chains with identical inputs and
// identical outputs element by element when the running upper bound of one
// stays below the running lower bound of the other. Allocs shared by the two
// elements at the same depth are excluded from both sums.
func (s *strengthener) constrainParallelChains() (bool, error) {
	var pending []tc.Edge
	for a := range s.g.ops {
		group := s.g.IdenticalIns(a)
		if len(group) < 2 {
			continue
		}
		for _, b := range group {
			if b == a || !s.tc.Unconstrained(a, b) {
				continue
			}
			aChain := s.g.TightChainFrom(a)
			aOuts := s.g.ops[aChain[len(aChain)-1]].outs
			bChain := s.g.TightChainFrom(b)
			if len(aChain) < len(bChain) ||
				!slices.Equal(aOuts, s.g.ops[bChain[len(bChain)-1]].outs) {
				continue
			}
			if !s.chainDominates(aChain, bChain) {
				continue
			}
			for i := range bChain {
				pending = append(pending, tc.Edge{aChain[i], bChain[i]})
			}
		}
	}
	return s.commitConstraints(pending)
}

func (s *strengthener) chainDominates(aChain, bChain []OpAddress) bool {
	var runningUpp, runningLow Weight
	for i := range bChain {
		ai, bi := aChain[i], bChain[i]
		uppA, lowB := s.bounds.upper[ai], s.bounds.lower[bi]
		for _, alloc := range s.g.ops[bi].allocs {
			if !containsSorted(s.g.ops[ai].allocs, alloc) {
				continue
			}
			al := &s.g.allocs[alloc]
			negW := al.weight.Neg()
			_, uppA = updateFromFirstFinal(Zero, uppA, negW, s.tc.ExtremumStatus(ai, al.ops))
			lowB, _ = updateFromFirstFinal(lowB, Zero, negW, s.tc.ExtremumStatus(bi, al.ops))
		}
		runningUpp = runningUpp.Add(uppA)
		runningLow = runningLow.Add(lowB)
		switch runningUpp.Cmp(runningLow) {
		case -1:
		case 0:
			if ai > bi {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// slideLinks moves every constraint attached to the inside of a link chain
// onto the chain's ends: successors of a member hang off the last member,
// predecessors of a member point at the first member. Constraints between
// members of the same chain are implied by the links and are dropped.
func (s *strengthener) slideLinks() (bool, error) {
	changed := false
	for _, chain := range s.g.LinkChains() {
		front, back := chain[0], chain[len(chain)-1]
		members := mapset.NewThreadUnsafeSet(chain...)
		for i, op := range chain {
			if i != len(chain)-1 {
				for _, out := range slices.Clone(s.g.ops[op].outs) {
					if out == s.g.ops[op].fwdLink {
						continue
					}
					s.g.removeConstraint(op, out)
					if !members.Contains(out) {
						s.g.insertConstraint(back, out)
					}
					changed = true
				}
			}
			if i != 0 {
				for _, in := range slices.Clone(s.g.ops[op].ins) {
					if in == s.g.ops[op].bwdLink {
						continue
					}
					s.g.removeConstraint(in, op)
					if !members.Contains(in) {
						s.g.insertConstraint(in, front)
					}
					changed = true
				}
			}
		}
	}
	return changed, nil
}

// statusesOf returns the first/final status of every user of the alloc.
func (s *strengthener) statusesOf(alloc AllocAddress) []tc.Status {
	return s.tc.ExtremumStatuses(s.g.allocs[alloc].ops)
}
