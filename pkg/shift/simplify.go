package shift

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	tc "github.com/matzehuels/shiftsched/pkg/transitiveclosure"
)

// The alloc simplifiers below rewrite allocs so that the liveness of every
// schedule changes by the same constant. They never change which schedule is
// optimal.

// disconnectAllocsWithZeroWeight empties allocs of zero weight.
func (s *strengthener) disconnectAllocsWithZeroWeight() (bool, error) {
	changed := false
	for i := range s.g.allocs {
		if s.g.allocs[i].weight.IsZero() && len(s.g.allocs[i].ops) > 0 {
			if err := s.g.DisconnectAlloc(i); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// disconnectAllocsWithOneOp empties allocs used by a single op: they are
// live for exactly one position in every schedule.
func (s *strengthener) disconnectAllocsWithOneOp() (bool, error) {
	changed := false
	for i := range s.g.allocs {
		if len(s.g.allocs[i].ops) == 1 {
			if err := s.g.DisconnectAlloc(i); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// combineAllocsWithCommonOps folds allocs with identical users into the
// lowest addressed one, summing their weights.
func (s *strengthener) combineAllocsWithCommonOps() (bool, error) {
	changed := false
	first := make(map[string]AllocAddress)
	for i := range s.g.allocs {
		a := &s.g.allocs[i]
		if len(a.ops) == 0 {
			continue
		}
		key := fmt.Sprint(a.ops)
		keep, ok := first[key]
		if !ok {
			first[key] = i
			continue
		}
		s.g.setWeight(keep, s.g.allocs[keep].weight.Add(a.weight))
		if err := s.g.DisconnectAlloc(i); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// disconnectInbetweenerAllocs removes users that are neither first nor final
// in any schedule: the live interval is fixed by the other users.
func (s *strengthener) disconnectInbetweenerAllocs() (bool, error) {
	changed := false
	for i := range s.g.allocs {
		ops := s.g.allocs[i].ops
		var inbetween []OpAddress
		for j, st := range s.statusesOf(i) {
			if st.First == tc.No && st.Final == tc.No {
				inbetween = append(inbetween, ops[j])
			}
		}
		for _, op := range inbetween {
			if err := s.g.DisconnectOpAlloc(op, i); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

// connectContiguousAllocs merges two allocs of equal weight where one op is
// the definite final user of the first and the definite first user of the
// second: their live intervals always touch at that op.
func (s *strengthener) connectContiguousAllocs() (bool, error) {
	endsAt := make(map[OpAddress][]AllocAddress)
	startsAt := make(map[OpAddress][]AllocAddress)
	for i := range s.g.allocs {
		ops := s.g.allocs[i].ops
		for j, st := range s.statusesOf(i) {
			if st.Final == tc.Yes {
				endsAt[ops[j]] = append(endsAt[ops[j]], i)
			}
			if st.First == tc.Yes {
				startsAt[ops[j]] = append(startsAt[ops[j]], i)
			}
		}
	}

	changed := false
	touched := mapset.NewThreadUnsafeSet[AllocAddress]()
	for op := range s.g.ops {
	pairs:
		for _, a := range endsAt[op] {
			for _, b := range startsAt[op] {
				if a == b || touched.Contains(a) || touched.Contains(b) ||
					s.g.allocs[a].weight != s.g.allocs[b].weight {
					continue
				}
				bOps := append([]OpAddress(nil), s.g.allocs[b].ops...)
				if err := s.g.DisconnectAlloc(b); err != nil {
					return changed, err
				}
				if err := s.g.InsertOpAlloc(bOps, a); err != nil {
					return changed, err
				}
				touched.Append(a, b)
				changed = true
				break pairs
			}
		}
	}
	return changed, nil
}
