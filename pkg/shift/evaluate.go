package shift

import (
	"slices"
)

// shiftAndCost is the best destination found for one window, as an offset
// from the window's current start, and the liveness change it causes. A zero
// shift means no destination improves on the current position.
type shiftAndCost struct {
	shift int
	cost  Weight
}

// costEvaluator finds the best destination for the window of the current
// size starting at start0. Destinations are visited forward first, nearest
// first, then backward, nearest first; the first strictly negative minimum
// wins, so both implementations agree on ties.
type costEvaluator interface {
	bestShift(s *scheduled, start0 int) shiftAndCost
}

func newEvaluator(algo RotationAlgo) costEvaluator {
	if algo == RotationSimple {
		return &simpleEvaluator{}
	}
	return &rippleEvaluator{}
}

// allocGeom locates the users of one alloc relative to a window: its users
// inside the window and its users outside it.
type allocGeom struct {
	weight        Weight
	first, last   int
	hasWin        bool
	wFirst, wLast int
	hasOut        bool
	oFirst, oLast int
}

func (s *scheduled) geometry(a AllocAddress, start, n int) allocGeom {
	pos := s.allocToSch[a]
	g := allocGeom{weight: s.g.allocs[a].weight}
	if len(pos) == 0 {
		return g
	}
	g.first, g.last = pos[0], pos[len(pos)-1]
	i0, _ := slices.BinarySearch(pos, start)
	i1, _ := slices.BinarySearch(pos, start+n)
	if i1 > i0 {
		g.hasWin, g.wFirst, g.wLast = true, pos[i0], pos[i1-1]
	}
	if i0 > 0 || i1 < len(pos) {
		g.hasOut = true
		if i0 > 0 {
			g.oFirst = pos[0]
		} else {
			g.oFirst = pos[i1]
		}
		if i1 < len(pos) {
			g.oLast = pos[len(pos)-1]
		} else {
			g.oLast = pos[i0-1]
		}
	}
	return g
}

// spanChange is the change in live-interval length of an alloc when the
// window [start, start+n) moves by m positions and the block of b positions
// it jumps over moves n positions the other way. forward selects the
// direction. With m == b this is an actual shift; m == b+1 extrapolates the
// current linear piece one step further.
//
// Outside the window the position map is monotone, so the new extremes of
// the outside users are the images of the old ones.
func (g *allocGeom) spanChange(start, n, b, m int, forward bool) int {
	if !g.hasWin && !g.hasOut {
		return 0
	}
	moveOut := func(x int) int {
		if forward && x >= start+n && x < start+n+b {
			return x - n
		}
		if !forward && x >= start-b && x < start {
			return x + n
		}
		return x
	}
	dw := m
	if !forward {
		dw = -m
	}

	first, last := int(^uint(0)>>1), -1
	if g.hasWin {
		first, last = g.wFirst+dw, g.wLast+dw
	}
	if g.hasOut {
		first = min(first, moveOut(g.oFirst))
		last = max(last, moveOut(g.oLast))
	}
	return (last - first) - (g.last - g.first)
}

// shiftCost is the exact liveness change caused to alloc a by moving the
// window [start0, start0+n) to start at start1.
func (s *scheduled) shiftCost(start0, start1, n int, a AllocAddress) Weight {
	g := s.geometry(a, start0, n)
	d := start1 - start0
	b := max(d, -d)
	return g.weight.Scale(float64(g.spanChange(start0, n, b, b, d > 0)))
}

// simpleEvaluator rotates a copy of the schedule for every destination and
// measures total liveness from scratch.
type simpleEvaluator struct {
	trial []OpAddress
	pos   []int
}

func (e *simpleEvaluator) bestShift(s *scheduled, start0 int) shiftAndCost {
	var best shiftAndCost
	base := e.total(s, s.schToOp)
	try := func(shift int) {
		c := changeFromShift(start0, s.n, shift)
		if !s.linkPreserving(c) {
			return
		}
		e.trial = append(e.trial[:0], s.schToOp...)
		rotate(e.trial[c.x0:c.end()], c.n0)
		if cost := e.total(s, e.trial).Sub(base); cost.Less(best.cost) {
			best = shiftAndCost{shift: shift, cost: cost}
		}
	}
	for d := 1; d <= s.nCanFwd[start0]; d++ {
		try(d)
	}
	for d := 1; d <= s.nCanBwd[start0]; d++ {
		try(-d)
	}
	return best
}

func (e *simpleEvaluator) total(s *scheduled, order []OpAddress) Weight {
	if cap(e.pos) < len(order) {
		e.pos = make([]int, len(order))
	}
	e.pos = e.pos[:len(order)]
	for i, op := range order {
		e.pos[op] = i
	}
	var sum Weight
	for a := range s.g.allocs {
		al := &s.g.allocs[a]
		if len(al.ops) == 0 {
			continue
		}
		first, last := e.pos[al.ops[0]], e.pos[al.ops[0]]
		for _, op := range al.ops[1:] {
			first, last = min(first, e.pos[op]), max(last, e.pos[op])
		}
		sum = sum.Add(al.weight.Scale(float64(last - first + 1)))
	}
	return sum
}

// rippleEvaluator walks destinations one step at a time. Between two steps
// at which one of its users is jumped over, every alloc's cost is linear in
// the step, so only the allocs of the op being jumped over need exact
// recomputation; the rest advance by their per-step increment.
type rippleEvaluator struct {
	entries []rippleEntry
	inPlay  []AllocAddress
}

// rippleEntry is the cost of one alloc in play: delta at step at, growing
// by slope per step.
type rippleEntry struct {
	active bool
	geom   allocGeom
	delta  Weight
	slope  Weight
	at     int
}

func (r *rippleEntry) valueAt(d int) Weight {
	return r.delta.Add(r.slope.Scale(float64(d - r.at)))
}

func (e *rippleEvaluator) bestShift(s *scheduled, start0 int) shiftAndCost {
	if len(e.entries) < s.g.NAllocs() {
		e.entries = make([]rippleEntry, s.g.NAllocs())
	}
	var best shiftAndCost
	e.walk(s, start0, true, s.nCanFwd[start0], &best)
	e.walk(s, start0, false, s.nCanBwd[start0], &best)
	return best
}

func (e *rippleEvaluator) walk(s *scheduled, start0 int, forward bool, limit int, best *shiftAndCost) {
	defer e.reset()
	if limit <= 0 {
		return
	}
	n := s.n
	var total, sumSlope Weight
	for i := start0; i < start0+n; i++ {
		for _, a := range s.schToAllocs[i] {
			e.update(s, a, start0, 0, forward, &total, &sumSlope)
		}
	}

	sign := 1
	if !forward {
		sign = -1
	}
	for d := 1; d <= limit; d++ {
		total = total.Add(sumSlope)
		p := start0 + n + d - 1
		if !forward {
			p = start0 - d
		}
		for _, a := range s.schToAllocs[p] {
			e.update(s, a, start0, d, forward, &total, &sumSlope)
		}
		if total.Less(best.cost) && s.linkPreserving(changeFromShift(start0, n, sign*d)) {
			*best = shiftAndCost{shift: sign * d, cost: total}
		}
	}
}

// update recomputes the exact cost of alloc a at step d and the increment
// of its current linear piece, and folds both into the running sums.
func (e *rippleEvaluator) update(s *scheduled, a AllocAddress, start0, d int, forward bool, total, sumSlope *Weight) {
	ent := &e.entries[a]
	if !ent.active {
		*ent = rippleEntry{active: true, geom: s.geometry(a, start0, s.n), at: d}
		e.inPlay = append(e.inPlay, a)
	}
	w := ent.geom.weight
	old := ent.valueAt(d)
	now := w.Scale(float64(ent.geom.spanChange(start0, s.n, d, d, forward)))
	next := w.Scale(float64(ent.geom.spanChange(start0, s.n, d, d+1, forward)))
	slope := next.Sub(now)

	*total = total.Add(now.Sub(old))
	*sumSlope = sumSlope.Add(slope.Sub(ent.slope))
	ent.delta, ent.slope, ent.at = now, slope, d
}

// reset clears every entry touched by the last walk.
func (e *rippleEvaluator) reset() {
	for _, a := range e.inPlay {
		e.entries[a] = rippleEntry{}
	}
	e.inPlay = e.inPlay[:0]
}
