package shift

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/scc"
	tc "github.com/matzehuels/shiftsched/pkg/transitiveclosure"
)

// PassStats reports what the constraint-strengthening loop did.
type PassStats struct {
	Rounds  int            `json:"rounds"`
	Changes map[string]int `json:"changes,omitempty"`
	// Rebuilds counts closure rebuilds after the first round; the remaining
	// rounds updated the closure incrementally.
	Rebuilds int `json:"rebuilds"`
}

// strengthener runs the passes on a working copy of the graph. The closure
// and the bound changes are refreshed at the start of every round.
type strengthener struct {
	g      *Graph
	tc     *tc.Closure
	bounds boundChanges
	log    *log.Logger
}

type pass struct {
	name string
	run  func() (bool, error)
}

func (s *strengthener) enabled(p Passes) []pass {
	all := []struct {
		on   bool
		name string
		run  func() (bool, error)
	}{
		{p.LinkTightDrops, "link_tight_drops", s.linkTightDrops},
		{p.LinkCloseTightPairs, "link_close_tight_pairs", s.linkCloseTightPairs},
		{p.ConstrainWeightSeparatedGroups, "constrain_weight_separated_groups", s.constrainWeightSeparatedGroups},
		{p.ConstrainParallelChains, "constrain_parallel_chains", s.constrainParallelChains},
		{p.SlideLinks, "slide_links", s.slideLinks},
		{p.CombineAllocsWithCommonOps, "combine_allocs_with_common_ops", s.combineAllocsWithCommonOps},
		{p.DisconnectAllocsWithOneOp, "disconnect_allocs_with_one_op", s.disconnectAllocsWithOneOp},
		{p.DisconnectAllocsWithZeroWeight, "disconnect_allocs_with_zero_weight", s.disconnectAllocsWithZeroWeight},
		{p.DisconnectInbetweenerAllocs, "disconnect_inbetweener_allocs", s.disconnectInbetweenerAllocs},
		{p.ConnectContiguousAllocs, "connect_contiguous_allocs", s.connectContiguousAllocs},
	}
	var out []pass
	for _, a := range all {
		if a.on {
			out = append(out, pass{a.name, a.run})
		}
	}
	return out
}

// strengthen runs the enabled passes on g until no pass changes anything or
// the iteration cap is reached. A pass that changed something runs again in
// the next round. A round without changes ends the loop only if every pass
// ran in it; otherwise every pass gets one more round.
func strengthen(g *Graph, p Passes, logger *log.Logger) (PassStats, error) {
	stats := PassStats{Changes: make(map[string]int)}
	s := &strengthener{g: g, log: logger}
	passes := s.enabled(p)
	if len(passes) == 0 {
		return stats, nil
	}

	toRun := make([]bool, len(passes))
	for i := range toRun {
		toRun[i] = true
	}
	var prev edgeSet
	for round := 0; round < p.MaxIterations; round++ {
		if err := s.refreshClosure(round, prev, &stats); err != nil {
			return stats, err
		}
		s.removeRedundantEdges()
		s.bounds = computeBoundChanges(g, s.tc)
		prev = g.edgeSet()

		nChanged, allRan := 0, true
		next := make([]bool, len(passes))
		for i, ps := range passes {
			if !toRun[i] {
				allRan = false
				continue
			}
			changed, err := ps.run()
			if err != nil {
				return stats, wrapCode(err, "pass %s", ps.name)
			}
			if changed {
				nChanged++
				next[i] = true
				stats.Changes[ps.name]++
			}
		}
		stats.Rounds++
		logger.Debug("strengthening round", "round", round, "passes_changed", nChanged,
			"edges", g.NEdges(), "links", g.NLinks())

		switch {
		case nChanged == 0 && allRan:
			return stats, nil
		case nChanged <= 1:
			for i := range toRun {
				toRun[i] = true
			}
		default:
			toRun = next
		}
	}
	return stats, nil
}

func (s *strengthener) refreshClosure(round int, prev edgeSet, stats *PassStats) error {
	if round == 0 {
		c, err := tc.New(s.g.NOps(), s.g.Edges())
		if err != nil {
			if errors.Is(err, errors.ErrCodeCycle) {
				return cycleError(s.g)
			}
			return err
		}
		s.tc = c
		if m := s.g.Merge(); !schedulable(m.Graph) {
			return cycleError(m.Graph)
		}
		return nil
	}

	diff := s.g.constraintDiff(prev)
	if len(diff) == 0 {
		return nil
	}
	if tc.ShouldRebuild(s.g.NOps(), len(diff)) {
		stats.Rebuilds++
		c, err := tc.New(s.g.NOps(), s.g.Edges())
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "passes introduced a cycle")
		}
		s.tc = c
		return nil
	}
	if err := s.tc.Update(diff); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "passes introduced a cycle")
	}
	return nil
}

// removeRedundantEdges drops constraints implied by other paths. Constraints
// backing a link are kept.
func (s *strengthener) removeRedundantEdges() {
	for _, e := range s.tc.Redundants(s.g.Edges()) {
		if s.g.ops[e[0]].fwdLink != e[1] {
			s.g.removeConstraint(e[0], e[1])
		}
	}
}

// commitConstraints inserts the constraints a pass collected, in order.
// A constraint is skipped when the closure already implies it, or when it
// would close a cycle either in the graph or in its link-merged image, where
// a constraint into the middle of a link chain orders its source against
// the whole chain. It reports whether the graph changed.
func (s *strengthener) commitConstraints(pending []tc.Edge) (bool, error) {
	if len(pending) == 0 {
		return false, nil
	}
	m := s.g.Merge()
	merged, err := tc.New(m.Graph.NOps(), m.Graph.Edges())
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "link-merged graph is cyclic")
	}

	changed := false
	for _, e := range pending {
		from, to := e[0], e[1]
		if from == to || s.tc.Constrained(from, to) || s.tc.Constrained(to, from) {
			continue
		}
		mFrom, mTo := m.Parent[from], m.Parent[to]
		if mFrom == mTo || merged.Constrained(mTo, mFrom) {
			continue
		}
		s.g.insertConstraint(from, to)
		// Neither update can fail: the reverse direction was checked above.
		_ = s.tc.Update([]tc.Edge{{from, to}})
		_ = merged.Update([]tc.Edge{{mFrom, mTo}})
		changed = true
	}
	return changed, nil
}

// cycleError describes the strongly connected components of a cyclic graph.
func cycleError(g *Graph) error {
	return errors.New(errors.ErrCodeCycle,
		"there is a cycle in the graph; the non-singleton strongly connected components, in topological order, are:%s",
		scc.Summary(g.ForwardEdges(), g.Names()))
}

// wrapCode adds context to err and keeps its code, defaulting to internal.
func wrapCode(err error, format string, args ...any) error {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errors.Wrap(code, err, format, args...)
}
