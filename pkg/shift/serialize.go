package shift

import (
	"encoding/json"
	"slices"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// Doc is the persisted form of a [Graph]. It carries enough information to
// rebuild the graph exactly, and is shared by every file format.
type Doc struct {
	Ops    []OpDoc    `json:"ops" yaml:"ops"`
	Allocs []AllocDoc `json:"allocs" yaml:"allocs"`
}

// OpDoc is the persisted form of an [Op]. Ins are redundant with Outs and
// are checked for consistency when present. FwdLink is nil for unlinked ops.
type OpDoc struct {
	Address OpAddress      `json:"address" yaml:"address"`
	Name    string         `json:"name" yaml:"name"`
	Ins     []OpAddress    `json:"ins,omitempty" yaml:"ins,omitempty"`
	Outs    []OpAddress    `json:"outs" yaml:"outs"`
	Allocs  []AllocAddress `json:"allocs" yaml:"allocs"`
	FwdLink *OpAddress     `json:"fwdLink,omitempty" yaml:"fwdLink,omitempty"`
}

// AllocDoc is the persisted form of an [Alloc]. Weight holds one scalar or
// all components.
type AllocDoc struct {
	Address AllocAddress `json:"address" yaml:"address"`
	Weight  []float64    `json:"weight" yaml:"weight"`
}

// Doc returns the persisted form of g.
func (g *Graph) Doc() Doc {
	d := Doc{
		Ops:    make([]OpDoc, len(g.ops)),
		Allocs: make([]AllocDoc, len(g.allocs)),
	}
	for i := range g.ops {
		op := &g.ops[i]
		d.Ops[i] = OpDoc{
			Address: op.address,
			Name:    op.name,
			Ins:     nonNil(op.ins),
			Outs:    nonNil(op.outs),
			Allocs:  nonNil(op.allocs),
		}
		if op.HasFwdLink() {
			link := op.fwdLink
			d.Ops[i].FwdLink = &link
		}
	}
	for i := range g.allocs {
		a := &g.allocs[i]
		d.Allocs[i] = AllocDoc{Address: a.address, Weight: slices.Clone(a.weight[:])}
	}
	return d
}

// FromDoc rebuilds a graph. Records may appear in any order but addresses
// must be unique and dense. Ops are inserted first, then allocs, then
// constraints, links and op-alloc associations.
func FromDoc(d Doc) (*Graph, error) {
	ops, err := byAddress(d.Ops, func(o OpDoc) int { return o.Address }, "op")
	if err != nil {
		return nil, err
	}
	allocs, err := byAddress(d.Allocs, func(a AllocDoc) int { return a.Address }, "alloc")
	if err != nil {
		return nil, err
	}

	g := NewGraph()
	for _, o := range ops {
		g.InsertOp(o.Name)
	}
	for _, a := range allocs {
		w, err := WeightFromSlice(a.Weight)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "alloc %d", a.Address)
		}
		g.InsertAlloc(w)
	}
	for _, o := range ops {
		for _, out := range o.Outs {
			if err := g.InsertConstraint(o.Address, out); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "op %d", o.Address)
			}
		}
	}
	for _, o := range ops {
		if o.FwdLink == nil {
			continue
		}
		if err := g.InsertLink(o.Address, *o.FwdLink); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "op %d", o.Address)
		}
	}
	for _, o := range ops {
		for _, a := range o.Allocs {
			if err := g.InsertOpAlloc([]OpAddress{o.Address}, a); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "op %d", o.Address)
			}
		}
	}
	for _, o := range ops {
		if o.Ins != nil && !slices.Equal(sortedUnique(o.Ins), g.ops[o.Address].ins) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"op %d: ins %v disagree with outs of other ops", o.Address, o.Ins)
		}
	}
	return g, nil
}

// MarshalJSON encodes the graph as its [Doc].
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Doc())
}

// UnmarshalJSON replaces g with the graph encoded in data.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var d Doc
	if err := json.Unmarshal(data, &d); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decoding graph")
	}
	decoded, err := FromDoc(d)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

func byAddress[T any](recs []T, addr func(T) int, kind string) ([]T, error) {
	out := make([]T, len(recs))
	seen := make([]bool, len(recs))
	for _, r := range recs {
		a := addr(r)
		if a < 0 || a >= len(recs) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"%s address %d out of range for %d records", kind, a, len(recs))
		}
		if seen[a] {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "duplicate %s address %d", kind, a)
		}
		seen[a] = true
		out[a] = r
	}
	return out, nil
}

func sortedUnique(s []int) []int {
	s = slices.Clone(s)
	slices.Sort(s)
	return slices.Compact(s)
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return slices.Clone(s)
}
