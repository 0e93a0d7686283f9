package shift

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// OpAddress identifies an op. Addresses are dense: the i-th inserted op has
// address i.
type OpAddress = int

// AllocAddress identifies an alloc. Addresses are dense like [OpAddress].
type AllocAddress = int

// NoLink marks an op without a forward or backward link.
const NoLink OpAddress = -1

// Op is one node of the scheduling graph. Slices returned by its accessors
// are sorted, duplicate free and owned by the graph: callers must not modify
// them.
type Op struct {
	address OpAddress
	name    string
	ins     []OpAddress
	outs    []OpAddress
	allocs  []AllocAddress
	fwdLink OpAddress
	bwdLink OpAddress
}

func (o *Op) Address() OpAddress      { return o.address }
func (o *Op) Name() string            { return o.name }
func (o *Op) Ins() []OpAddress        { return o.ins }
func (o *Op) Outs() []OpAddress       { return o.outs }
func (o *Op) Allocs() []AllocAddress  { return o.allocs }
func (o *Op) NIns() int               { return len(o.ins) }
func (o *Op) NOuts() int              { return len(o.outs) }
func (o *Op) FwdLink() OpAddress      { return o.fwdLink }
func (o *Op) BwdLink() OpAddress      { return o.bwdLink }
func (o *Op) HasFwdLink() bool        { return o.fwdLink != NoLink }
func (o *Op) HasBwdLink() bool        { return o.bwdLink != NoLink }
func (o *Op) HasIn(a OpAddress) bool  { return containsSorted(o.ins, a) }
func (o *Op) HasOut(a OpAddress) bool { return containsSorted(o.outs, a) }

// Alloc is a weighted buffer live from its first user to its last user in
// a schedule.
type Alloc struct {
	address AllocAddress
	weight  Weight
	ops     []OpAddress
}

func (a *Alloc) Address() AllocAddress { return a.address }
func (a *Alloc) Weight() Weight        { return a.weight }
func (a *Alloc) Ops() []OpAddress      { return a.ops }
func (a *Alloc) NOps() int             { return len(a.ops) }

// Graph owns the ops, the allocs and the precedence relation between ops.
//
// Ops and allocs are never removed. Constraint and link mutation is allowed
// until the graph is handed to [Schedule], which works on its own copy.
type Graph struct {
	ops    []Op
	allocs []Alloc
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

func (g *Graph) NOps() int    { return len(g.ops) }
func (g *Graph) NAllocs() int { return len(g.allocs) }

// Op returns the op at address a. It panics if a is out of range.
func (g *Graph) Op(a OpAddress) *Op { return &g.ops[a] }

// Alloc returns the alloc at address a. It panics if a is out of range.
func (g *Graph) Alloc(a AllocAddress) *Alloc { return &g.allocs[a] }

// InsertOp appends an op and returns its address.
func (g *Graph) InsertOp(name string) OpAddress {
	a := len(g.ops)
	g.ops = append(g.ops, Op{address: a, name: name, fwdLink: NoLink, bwdLink: NoLink})
	return a
}

// InsertOps appends one op per name and returns their addresses.
func (g *Graph) InsertOps(names []string) []OpAddress {
	out := make([]OpAddress, len(names))
	for i, n := range names {
		out[i] = g.InsertOp(n)
	}
	return out
}

// InsertAlloc appends an alloc with weight w and returns its address.
func (g *Graph) InsertAlloc(w Weight) AllocAddress {
	a := len(g.allocs)
	g.allocs = append(g.allocs, Alloc{address: a, weight: w})
	return a
}

// InsertOpAlloc associates every op in ops with the alloc.
func (g *Graph) InsertOpAlloc(ops []OpAddress, alloc AllocAddress) error {
	if err := g.checkAlloc(alloc); err != nil {
		return err
	}
	for _, op := range ops {
		if err := g.checkOp(op); err != nil {
			return err
		}
	}
	for _, op := range ops {
		g.ops[op].allocs, _ = insertSorted(g.ops[op].allocs, alloc)
		g.allocs[alloc].ops, _ = insertSorted(g.allocs[alloc].ops, op)
	}
	return nil
}

// InsertConstraint requires from to be scheduled before to. Inserting an
// existing constraint is a no-op.
func (g *Graph) InsertConstraint(from, to OpAddress) error {
	if err := g.checkPair(from, to); err != nil {
		return err
	}
	g.insertConstraint(from, to)
	return nil
}

func (g *Graph) insertConstraint(from, to OpAddress) bool {
	var added bool
	g.ops[from].outs, added = insertSorted(g.ops[from].outs, to)
	if added {
		g.ops[to].ins, _ = insertSorted(g.ops[to].ins, from)
	}
	return added
}

// InsertConstraints inserts every pair as a constraint. It stops at the
// first invalid pair.
func (g *Graph) InsertConstraints(pairs [][2]OpAddress) error {
	for _, p := range pairs {
		if err := g.InsertConstraint(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// RemoveConstraint drops the constraint from→to if present. Constraints that
// back a link cannot be removed.
func (g *Graph) RemoveConstraint(from, to OpAddress) error {
	if err := g.checkPair(from, to); err != nil {
		return err
	}
	if g.ops[from].fwdLink == to {
		return errors.New(errors.ErrCodeConflictingLink,
			"cannot remove constraint %d->%d: it backs a link", from, to)
	}
	g.removeConstraint(from, to)
	return nil
}

func (g *Graph) removeConstraint(from, to OpAddress) {
	g.ops[from].outs = removeSorted(g.ops[from].outs, to)
	g.ops[to].ins = removeSorted(g.ops[to].ins, from)
}

// InsertLink requires to to be scheduled immediately after from. The
// constraint from→to is inserted if missing. Re-inserting an existing link
// is a no-op; any other link on either endpoint is a conflict.
func (g *Graph) InsertLink(from, to OpAddress) error {
	if err := g.checkPair(from, to); err != nil {
		return err
	}
	f, t := &g.ops[from], &g.ops[to]
	if f.fwdLink == to && t.bwdLink == from {
		return nil
	}
	if f.HasFwdLink() {
		return errors.New(errors.ErrCodeConflictingLink,
			"op %d already links forward to %d, cannot link to %d", from, f.fwdLink, to)
	}
	if t.HasBwdLink() {
		return errors.New(errors.ErrCodeConflictingLink,
			"op %d already links backward to %d, cannot link from %d", to, t.bwdLink, from)
	}
	f.fwdLink = to
	t.bwdLink = from
	g.insertConstraint(from, to)
	return nil
}

// InsertBinConstraints orders groups of ops: every op in bins[i-1] runs
// before every op in bins[i]. A bottleneck op named prefix+i is inserted
// between consecutive bins, so the constraint count stays linear. The
// bottlenecks are themselves chained starting from an op named prefix+"0".
// It returns the address of that first inserted op.
func (g *Graph) InsertBinConstraints(bins [][]OpAddress, prefix string) (OpAddress, error) {
	for _, bin := range bins {
		for _, op := range bin {
			if err := g.checkOp(op); err != nil {
				return NoLink, err
			}
		}
	}
	first := g.InsertOp(prefix + "0")
	prev := first
	for i := 1; i < len(bins); i++ {
		op := g.InsertOp(prefix + strconv.Itoa(i))
		for _, before := range bins[i-1] {
			g.insertConstraint(before, op)
		}
		for _, after := range bins[i] {
			g.insertConstraint(op, after)
		}
		g.insertConstraint(prev, op)
		prev = op
	}
	return first, nil
}

// InsertAttractions adds one alloc of weight w per pair, used by both ops of
// the pair. Positive weights pull the pair together in the final schedule.
func (g *Graph) InsertAttractions(pairs [][2]OpAddress, w Weight) error {
	for _, p := range pairs {
		if err := g.checkOp(p[0]); err != nil {
			return err
		}
		if err := g.checkOp(p[1]); err != nil {
			return err
		}
	}
	for _, p := range pairs {
		a := g.InsertAlloc(w)
		if err := g.InsertOpAlloc([]OpAddress{p[0], p[1]}, a); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectOpAlloc removes the association between op and alloc.
func (g *Graph) DisconnectOpAlloc(op OpAddress, alloc AllocAddress) error {
	if err := g.checkOp(op); err != nil {
		return err
	}
	if err := g.checkAlloc(alloc); err != nil {
		return err
	}
	g.ops[op].allocs = removeSorted(g.ops[op].allocs, alloc)
	g.allocs[alloc].ops = removeSorted(g.allocs[alloc].ops, op)
	return nil
}

// DisconnectAlloc removes alloc from every op that uses it. The alloc keeps
// its address.
func (g *Graph) DisconnectAlloc(alloc AllocAddress) error {
	if err := g.checkAlloc(alloc); err != nil {
		return err
	}
	for _, op := range g.allocs[alloc].ops {
		g.ops[op].allocs = removeSorted(g.ops[op].allocs, alloc)
	}
	g.allocs[alloc].ops = nil
	return nil
}

func (g *Graph) setWeight(alloc AllocAddress, w Weight) {
	g.allocs[alloc].weight = w
}

// Edges returns every constraint, sorted by source then destination.
func (g *Graph) Edges() [][2]OpAddress {
	var out [][2]OpAddress
	for i := range g.ops {
		for _, b := range g.ops[i].outs {
			out = append(out, [2]OpAddress{i, b})
		}
	}
	return out
}

// NEdges returns the number of constraints.
func (g *Graph) NEdges() int {
	n := 0
	for i := range g.ops {
		n += len(g.ops[i].outs)
	}
	return n
}

// NLinks returns the number of links.
func (g *Graph) NLinks() int {
	n := 0
	for i := range g.ops {
		if g.ops[i].HasFwdLink() {
			n++
		}
	}
	return n
}

// InputOps returns the ops without predecessors.
func (g *Graph) InputOps() []OpAddress {
	var out []OpAddress
	for i := range g.ops {
		if len(g.ops[i].ins) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Names returns the op names indexed by address.
func (g *Graph) Names() []string {
	out := make([]string, len(g.ops))
	for i := range g.ops {
		out[i] = g.ops[i].name
	}
	return out
}

// ForwardEdges returns the successor lists indexed by address.
func (g *Graph) ForwardEdges() [][]int {
	out := make([][]int, len(g.ops))
	for i := range g.ops {
		out[i] = g.ops[i].outs
	}
	return out
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		ops:    make([]Op, len(g.ops)),
		allocs: make([]Alloc, len(g.allocs)),
	}
	for i, op := range g.ops {
		op.ins = slices.Clone(op.ins)
		op.outs = slices.Clone(op.outs)
		op.allocs = slices.Clone(op.allocs)
		c.ops[i] = op
	}
	for i, a := range g.allocs {
		a.ops = slices.Clone(a.ops)
		c.allocs[i] = a
	}
	return c
}

// Equal reports whether both graphs have identical ops, allocs and
// constraints.
func (g *Graph) Equal(o *Graph) bool {
	if len(g.ops) != len(o.ops) || len(g.allocs) != len(o.allocs) {
		return false
	}
	for i := range g.ops {
		a, b := &g.ops[i], &o.ops[i]
		if a.name != b.name || a.fwdLink != b.fwdLink || a.bwdLink != b.bwdLink ||
			!slices.Equal(a.ins, b.ins) || !slices.Equal(a.outs, b.outs) ||
			!slices.Equal(a.allocs, b.allocs) {
			return false
		}
	}
	for i := range g.allocs {
		a, b := &g.allocs[i], &o.allocs[i]
		if a.weight != b.weight || !slices.Equal(a.ops, b.ops) {
			return false
		}
	}
	return true
}

// String returns a one-line summary.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(ops=%d, allocs=%d, edges=%d, links=%d)",
		g.NOps(), g.NAllocs(), g.NEdges(), g.NLinks())
}

func (g *Graph) checkOp(a OpAddress) error {
	return errors.ValidateAddress("op", a, len(g.ops))
}

func (g *Graph) checkAlloc(a AllocAddress) error {
	return errors.ValidateAddress("alloc", a, len(g.allocs))
}

func (g *Graph) checkPair(from, to OpAddress) error {
	if err := g.checkOp(from); err != nil {
		return err
	}
	if err := g.checkOp(to); err != nil {
		return err
	}
	if from == to {
		return errors.New(errors.ErrCodeInvalidInput, "op %d cannot be constrained to itself", from)
	}
	return nil
}

func insertSorted(s []int, v int) ([]int, bool) {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s, false
	}
	return slices.Insert(s, i, v), true
}

func removeSorted(s []int, v int) []int {
	i, found := slices.BinarySearch(s, v)
	if !found {
		return s
	}
	return slices.Delete(s, i, i+1)
}

func containsSorted(s []int, v int) bool {
	_, found := slices.BinarySearch(s, v)
	return found
}
