package shift

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// conservationTolerance bounds the relative disagreement between the summed
// cost of accepted moves and the measured liveness change.
const conservationTolerance = 1e-5

// rotationStats reports what the shift search did.
type rotationStats struct {
	rotations   int64
	rounds      int64
	resetsToOne int64
	finalWindow int
	totalDelta  Weight
}

// rotator runs the shift search on a schedule.
type rotator struct {
	ctx      context.Context
	s        *scheduled
	eval     costEvaluator
	check    costEvaluator // debug mode only
	settings *Settings
	log      *log.Logger
	hooks    RoundObserver
}

func newRotator(ctx context.Context, s *scheduled, settings *Settings, hooks RoundObserver) *rotator {
	r := &rotator{
		ctx:      ctx,
		s:        s,
		eval:     newEvaluator(settings.RotationAlgo),
		settings: settings,
		log:      settings.logger(),
		hooks:    hooks,
	}
	if settings.DebugMode {
		other := RotationRipple
		if settings.RotationAlgo == RotationRipple {
			other = RotationSimple
		}
		r.check = newEvaluator(other)
	}
	return r
}

// run sweeps every op in a fixed random order, trying to move the window of
// the current size that starts at the op. A sweep without accepted moves at
// size 1 grows the window; one at a larger size resets it to 1. The search
// ends when no window can move further than the current size, or when the
// time or rotation budget runs out.
func (r *rotator) run() (rotationStats, error) {
	s := r.s
	var st rotationStats
	term := r.settings.Termination
	if !term.enabled() || s.nOps() == 0 {
		st.finalWindow = s.n
		return st, nil
	}

	initial := s.sumLiveness()
	order := make([]OpAddress, s.nOps())
	for i := range order {
		order[i] = i
	}
	rng := newRand(r.settings.Seed)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	start := time.Now()
	noChangeSinceStart := true
	snapshot := make([]bool, s.nOps())
	for {
		copy(snapshot, s.susceptible)
		clear(s.susceptible)

		var roundChanges int64
		for _, op0 := range order {
			n := s.n
			start0 := s.opToSch[op0]
			if start0 > s.nOps()-n {
				continue
			}
			op1 := s.schToOp[start0+n-1]
			if s.g.ops[op0].HasBwdLink() || s.g.ops[op1].HasFwdLink() {
				continue
			}
			if !r.anySusceptible(snapshot, start0, n) {
				continue
			}

			best := r.eval.bestShift(s, start0)
			if r.check != nil {
				if err := r.crossCheck(start0, best); err != nil {
					return st, err
				}
			}
			if !best.cost.Less(Zero) {
				continue
			}

			var before Weight
			if r.settings.DebugMode {
				before = s.sumLiveness()
			}
			s.apply(changeFromShift(start0, n, best.shift))
			if r.settings.DebugMode {
				if err := r.assertConsistent(before, best.cost); err != nil {
					return st, err
				}
			}
			roundChanges++
			st.totalDelta = st.totalDelta.Add(best.cost)
		}

		st.rounds++
		st.rotations += roundChanges
		noChangeSinceStart = noChangeSinceStart && roundChanges == 0
		elapsed := time.Since(start)
		r.log.Info("rotation round", "round", st.rounds, "changes", roundChanges,
			"window", s.n, "total_changes", st.rotations, "elapsed", elapsed.Round(time.Millisecond))
		if r.hooks != nil {
			r.hooks.OnRound(st.rounds, s.n, roundChanges, elapsed)
		}

		if elapsed.Seconds() > term.MaxSeconds || st.rotations >= term.MaxRotations {
			break
		}
		if err := r.ctx.Err(); err == context.DeadlineExceeded {
			r.log.Debug("rotation stopped at deadline", "round", st.rounds)
			break
		} else if err != nil {
			return st, err
		}

		switch {
		case noChangeSinceStart:
			s.setAllSusceptible()
			s.setWindow(s.n + 1)
		case roundChanges == 0:
			noChangeSinceStart = true
			st.resetsToOne++
			s.setAllSusceptible()
			s.setWindow(1)
		}

		if noChangeSinceStart && !s.anyCanMove() {
			break
		}
	}

	st.finalWindow = s.n
	final := s.livenessFromScratch()
	var finalSum Weight
	for _, l := range final {
		finalSum = finalSum.Add(l)
	}
	if !withinRelTol(finalSum.Sub(initial), st.totalDelta, conservationTolerance) {
		return st, errors.New(errors.ErrCodeInternal,
			"sum of accepted move costs %v differs from measured liveness change %v",
			st.totalDelta, finalSum.Sub(initial))
	}
	r.log.Debug("rotation finished", "initial_sum", initial, "final_sum", finalSum,
		"max_liveness", s.maxLiveness(), "rotations", st.rotations)
	return st, nil
}

func (r *rotator) anySusceptible(snapshot []bool, start0, n int) bool {
	for i := start0; i < start0+n; i++ {
		if snapshot[r.s.schToOp[i]] {
			return true
		}
	}
	return false
}

// crossCheck evaluates the window with the other algorithm and fails if the
// best costs disagree.
func (r *rotator) crossCheck(start0 int, got shiftAndCost) error {
	want := r.check.bestShift(r.s, start0)
	if !withinRelTol(got.cost, want.cost, conservationTolerance) {
		return errors.New(errors.ErrCodeInternal,
			"window [%d, %d): %s evaluator found shift %d cost %v, cross-check found shift %d cost %v",
			start0, start0+r.s.n, r.settings.RotationAlgo, got.shift, got.cost, want.shift, want.cost)
	}
	return nil
}

// assertConsistent rebuilds every cache from scratch and compares.
func (r *rotator) assertConsistent(before, cost Weight) error {
	s := r.s
	if err := ValidateOrder(s.g, s.schToOp); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "schedule after move")
	}
	fresh := &scheduled{g: s.g}
	fresh.init(s.schToOp)
	fresh.setWindow(s.n)

	for op := range s.opToSch {
		if s.schToOp[s.opToSch[op]] != op {
			return errors.New(errors.ErrCodeInternal, "op %d: position bijection broken", op)
		}
		if !slices.Equal(s.opToInSch[op], fresh.opToInSch[op]) ||
			!slices.Equal(s.opToOutSch[op], fresh.opToOutSch[op]) {
			return errors.New(errors.ErrCodeInternal, "op %d: stale dependency positions", op)
		}
	}
	for a := range s.allocToSch {
		if !slices.Equal(s.allocToSch[a], fresh.allocToSch[a]) {
			return errors.New(errors.ErrCodeInternal, "alloc %d: stale user positions", a)
		}
	}
	for i := range s.schToLiveness {
		if !withinRelTol(s.schToLiveness[i], fresh.schToLiveness[i], conservationTolerance) {
			return errors.New(errors.ErrCodeInternal, "position %d: liveness %v, want %v",
				i, s.schToLiveness[i], fresh.schToLiveness[i])
		}
	}
	if !slices.Equal(s.nCanFwd, fresh.nCanFwd) || !slices.Equal(s.nCanBwd, fresh.nCanBwd) {
		return errors.New(errors.ErrCodeInternal, "stale can-move bounds for window size %d", s.n)
	}
	after := fresh.sumLiveness()
	if !withinRelTol(after.Sub(before), cost, conservationTolerance) {
		return errors.New(errors.ErrCodeInternal, "move predicted %v, measured %v", cost, after.Sub(before))
	}
	if !after.LessEq(before) {
		return errors.New(errors.ErrCodeInternal, "liveness rose from %v to %v", before, after)
	}
	return nil
}
