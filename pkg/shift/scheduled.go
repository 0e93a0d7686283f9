package shift

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// scheduleChange swaps the adjacent blocks [x0, x0+n0) and [x0+n0, x0+n0+n1).
// Every window shift has exactly one such canonical form.
type scheduleChange struct {
	x0, n0, n1 int
}

func (c scheduleChange) end() int { return c.x0 + c.n0 + c.n1 }

// changeFromShift converts moving the window [start0, start0+n) by shift
// positions into its canonical form.
func changeFromShift(start0, n, shift int) scheduleChange {
	if shift > 0 {
		return scheduleChange{x0: start0, n0: n, n1: shift}
	}
	return scheduleChange{x0: start0 + shift, n0: -shift, n1: n}
}

// scheduled is a schedule of a graph together with every cache the shift
// search reads. All fields are owned by the struct and only change through
// init, apply and setWindow, which keep them mutually consistent.
type scheduled struct {
	g *Graph

	schToOp []OpAddress
	opToSch []int

	// Sorted schedule positions of each op's predecessors and successors.
	opToInSch  [][]int
	opToOutSch [][]int
	// Sorted schedule positions of each alloc's users.
	allocToSch [][]int

	schToAllocs   [][]AllocAddress
	schToLiveness []Weight

	// For the window size n, nCanFwd[i] and nCanBwd[i] are how far the
	// window [i, i+n) can move without crossing a dependency.
	n       int
	nCanFwd []int
	nCanBwd []int

	susceptible []bool
}

// newScheduled builds every cache from scratch for the given order.
func newScheduled(g *Graph, order []OpAddress) (*scheduled, error) {
	if err := ValidateOrder(g, order); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "initial schedule")
	}
	s := &scheduled{g: g}
	s.init(order)
	return s, nil
}

func (s *scheduled) init(order []OpAddress) {
	n := s.g.NOps()
	s.schToOp = slices.Clone(order)
	s.opToSch = make([]int, n)
	for i, op := range order {
		s.opToSch[op] = i
	}
	s.opToInSch = make([][]int, n)
	s.opToOutSch = make([][]int, n)
	for op := range n {
		s.refreshOpEdges(op)
	}
	s.schToAllocs = make([][]AllocAddress, n)
	for i, op := range order {
		s.schToAllocs[i] = s.g.ops[op].allocs
	}
	s.allocToSch = make([][]int, s.g.NAllocs())
	for a := range s.g.allocs {
		s.refreshAlloc(a)
	}
	s.schToLiveness = s.livenessFromScratch()
	s.susceptible = make([]bool, n)
	s.setAllSusceptible()
	s.setWindow(1)
}

func (s *scheduled) nOps() int { return len(s.schToOp) }

func (s *scheduled) refreshOpEdges(op OpAddress) {
	s.opToInSch[op] = s.positions(s.g.ops[op].ins, s.opToInSch[op])
	s.opToOutSch[op] = s.positions(s.g.ops[op].outs, s.opToOutSch[op])
}

func (s *scheduled) refreshAlloc(a AllocAddress) {
	s.allocToSch[a] = s.positions(s.g.allocs[a].ops, s.allocToSch[a])
}

// positions maps ops to their sorted schedule positions, reusing buf.
func (s *scheduled) positions(ops []OpAddress, buf []int) []int {
	buf = buf[:0]
	for _, op := range ops {
		buf = append(buf, s.opToSch[op])
	}
	slices.Sort(buf)
	return buf
}

func (s *scheduled) setAllSusceptible() {
	for i := range s.susceptible {
		s.susceptible[i] = true
	}
}

// liveness

func (s *scheduled) livenessFromScratch() []Weight {
	delta := make([]Weight, s.nOps()+1)
	for a := range s.g.allocs {
		pos := s.allocToSch[a]
		if len(pos) == 0 {
			continue
		}
		w := s.g.allocs[a].weight
		delta[pos[0]] = delta[pos[0]].Add(w)
		delta[pos[len(pos)-1]+1] = delta[pos[len(pos)-1]+1].Sub(w)
	}
	out := make([]Weight, s.nOps())
	var run Weight
	for i := range out {
		run = run.Add(delta[i])
		out[i] = run
	}
	return out
}

// addCoverage adds sign*weight of alloc a to every position of [lo, hi)
// covered by its live interval.
func (s *scheduled) addCoverage(a AllocAddress, lo, hi int, sign float64) {
	pos := s.allocToSch[a]
	if len(pos) == 0 {
		return
	}
	w := s.g.allocs[a].weight.Scale(sign)
	for i := max(lo, pos[0]); i < min(hi, pos[len(pos)-1]+1); i++ {
		s.schToLiveness[i] = s.schToLiveness[i].Add(w)
	}
}

func (s *scheduled) sumLiveness() Weight {
	var sum Weight
	for _, l := range s.schToLiveness {
		sum = sum.Add(l)
	}
	return sum
}

func (s *scheduled) maxLiveness() Weight {
	var m Weight
	for i, l := range s.schToLiveness {
		if i == 0 || m.Less(l) {
			m = l
		}
	}
	return m
}

// can-move bounds

func (s *scheduled) nWindows(n int) int {
	return max(0, s.nOps()-n+1)
}

// canFwd is how far the window [i, i+n) can move forward: up to, but not
// past, the first successor of a window member outside the window.
func (s *scheduled) canFwd(i, n int) int {
	end := i + n
	first := s.nOps()
	for j := i; j < end; j++ {
		first = min(first, firstAtOrAfter(s.opToOutSch[s.schToOp[j]], end))
	}
	return first - end
}

// canBwd is how far the window [i, i+n) can move backward: down to, but not
// past, the last predecessor of a window member outside the window.
func (s *scheduled) canBwd(i, n int) int {
	last := -1
	for j := i; j < i+n; j++ {
		last = max(last, lastBefore(s.opToInSch[s.schToOp[j]], i))
	}
	return i - 1 - last
}

// firstAtOrAfter returns the first element of sorted that is >= x, or
// math.MaxInt when there is none.
func firstAtOrAfter(sorted []int, x int) int {
	i, _ := slices.BinarySearch(sorted, x)
	if i == len(sorted) {
		return int(^uint(0) >> 1)
	}
	return sorted[i]
}

// lastBefore returns the last element of sorted that is < x, or -1.
func lastBefore(sorted []int, x int) int {
	i, _ := slices.BinarySearch(sorted, x)
	if i == 0 {
		return -1
	}
	return sorted[i-1]
}

// setWindow makes nCanFwd and nCanBwd describe windows of size n. Growing by
// one is derived from the previous bounds; any other change recomputes them.
func (s *scheduled) setWindow(n int) {
	if n == s.n+1 && s.nCanFwd != nil {
		s.growWindow()
		return
	}
	s.n = n
	nw := s.nWindows(n)
	s.nCanFwd = make([]int, nw)
	s.nCanBwd = make([]int, nw)
	for i := range nw {
		s.nCanFwd[i] = s.canFwd(i, n)
		s.nCanBwd[i] = s.canBwd(i, n)
	}
}

// growWindow derives the bounds for size n+1 from those for size n: the
// window [i, i+n+1) is the window [i+1, i+n+1) plus op i, and also the
// window [i, i+n) plus op i+n.
func (s *scheduled) growWindow() {
	old := s.n
	s.n = old + 1
	nw := s.nWindows(s.n)
	for i := range nw {
		end := i + s.n
		ownFwd := min(firstAtOrAfter(s.opToOutSch[s.schToOp[i]], end), s.nOps()) - end
		s.nCanFwd[i] = min(s.nCanFwd[i+1], ownFwd)

		ownBwd := i - 1 - lastBefore(s.opToInSch[s.schToOp[i+old]], i)
		s.nCanBwd[i] = min(s.nCanBwd[i], ownBwd)
	}
	s.nCanFwd = s.nCanFwd[:nw]
	s.nCanBwd = s.nCanBwd[:nw]
}

// anyCanMove reports whether some window of the current size could move at
// least n+1 positions in either direction.
func (s *scheduled) anyCanMove() bool {
	for i := range s.nCanFwd {
		if s.nCanFwd[i] > s.n || s.nCanBwd[i] > s.n {
			return true
		}
	}
	return false
}

// linkPreserving reports whether the change keeps every linked pair
// adjacent: no link may cross one of the three block boundaries.
func (s *scheduled) linkPreserving(c scheduleChange) bool {
	o0, o1 := c.x0+c.n0, c.end()
	return !s.g.ops[s.schToOp[c.x0]].HasBwdLink() &&
		!s.g.ops[s.schToOp[o0-1]].HasFwdLink() &&
		!s.g.ops[s.schToOp[o0]].HasBwdLink() &&
		!s.g.ops[s.schToOp[o1-1]].HasFwdLink()
}

// apply commits a change and updates every cache that it can affect.
func (s *scheduled) apply(c scheduleChange) {
	lo, mid, hi := c.x0, c.x0+c.n0, c.end()
	s.markSusceptible(lo, hi)

	touched := mapset.NewThreadUnsafeSet[AllocAddress]()
	for i := lo; i < hi; i++ {
		touched.Append(s.schToAllocs[i]...)
	}
	for a := range touched.Iter() {
		s.addCoverage(a, lo, hi, -1)
	}

	rotate(s.schToOp[lo:hi], mid-lo)
	rotate(s.schToAllocs[lo:hi], mid-lo)
	for i := lo; i < hi; i++ {
		s.opToSch[s.schToOp[i]] = i
	}

	refresh := mapset.NewThreadUnsafeSet[OpAddress]()
	minProducer, maxConsumer := lo, hi-1
	for i := lo; i < hi; i++ {
		op := s.schToOp[i]
		refresh.Add(op)
		for _, in := range s.g.ops[op].ins {
			refresh.Add(in)
			minProducer = min(minProducer, s.opToSch[in])
		}
		for _, out := range s.g.ops[op].outs {
			refresh.Add(out)
			maxConsumer = max(maxConsumer, s.opToSch[out])
		}
	}
	for op := range refresh.Iter() {
		s.refreshOpEdges(op)
	}
	for a := range touched.Iter() {
		s.refreshAlloc(a)
		s.addCoverage(a, lo, hi, +1)
	}

	n, nw := s.n, s.nWindows(s.n)
	for i := max(0, minProducer-n); i < min(hi, nw); i++ {
		s.nCanFwd[i] = s.canFwd(i, n)
	}
	for i := max(0, lo-n); i < min(maxConsumer+1, nw); i++ {
		s.nCanBwd[i] = s.canBwd(i, n)
	}
}

// markSusceptible flags the ops of [lo, hi) and their dependencies outside
// that range: their windows may have become improvable.
func (s *scheduled) markSusceptible(lo, hi int) {
	for i := lo; i < hi; i++ {
		op := s.schToOp[i]
		s.susceptible[op] = true
		for _, in := range s.g.ops[op].ins {
			if s.opToSch[in] < lo {
				s.susceptible[in] = true
			}
		}
		for _, out := range s.g.ops[op].outs {
			if s.opToSch[out] >= hi {
				s.susceptible[out] = true
			}
		}
	}
}

// rotate moves s[k:] in front of s[:k] in place.
func rotate[T any](s []T, k int) {
	slices.Reverse(s[:k])
	slices.Reverse(s[k:])
	slices.Reverse(s)
}
