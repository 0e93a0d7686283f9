package shift

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// RoundObserver is notified after every sweep of the shift search.
type RoundObserver interface {
	OnRound(round int64, window int, changes int64, elapsed time.Duration)
}

// Timings records the wall time of each phase of [Schedule].
type Timings struct {
	Passes time.Duration `json:"passes"`
	Kahn   time.Duration `json:"kahn"`
	Init   time.Duration `json:"init"`
	Rotate time.Duration `json:"rotate"`
	Total  time.Duration `json:"total"`
}

// Summary describes one scheduling run. Liveness figures are measured on
// the graph passed to [Schedule]. TotalDelta is the summed cost of accepted
// moves, measured on the working graph the alloc simplifiers may have
// rewritten; without simplifiers it equals FinalSumLiveness minus
// InitialSumLiveness.
type Summary struct {
	RunID              string    `json:"run_id"`
	NOps               int       `json:"n_ops"`
	NAllocs            int       `json:"n_allocs"`
	NEdges             int       `json:"n_edges"`
	NLinks             int       `json:"n_links"`
	InitialSumLiveness Weight    `json:"initial_sum_liveness"`
	FinalSumLiveness   Weight    `json:"final_sum_liveness"`
	InitialMaxLiveness Weight    `json:"initial_max_liveness"`
	FinalMaxLiveness   Weight    `json:"final_max_liveness"`
	TotalDelta         Weight    `json:"total_delta"`
	NRotations         int64     `json:"n_rotations"`
	NRounds            int64     `json:"n_rounds"`
	NResetsToOne       int64     `json:"n_resets_to_one"`
	FinalWindow        int       `json:"final_window"`
	Passes             PassStats `json:"passes"`
	Timings            Timings   `json:"timings"`
}

// Result is the output of [Schedule].
type Result struct {
	// Order lists every op address in schedule order.
	Order []OpAddress `json:"order"`
	// InitialOrder is the Kahn order the shift search started from.
	InitialOrder []OpAddress `json:"initial_order"`
	Summary      Summary     `json:"summary"`
}

// Schedule computes an op order for g that keeps the sum of live alloc
// weight low:
//
//  1. the enabled passes strengthen a copy of g to a fixpoint,
//  2. Kahn's algorithm orders the copy with its link chains merged,
//  3. the shift search moves windows of ops while that lowers liveness.
//
// g is not modified. A cycle is reported with its strongly connected
// components. Running out of the time or rotation budget returns the best
// order found so far.
func Schedule(g *Graph, settings Settings) (*Result, error) {
	return ScheduleContext(context.Background(), g, settings)
}

// ScheduleContext is [Schedule] bound to ctx. The context is checked after
// every sweep of the shift search: cancellation aborts with ctx.Err(), an
// expired deadline ends the search like the time budget does.
func ScheduleContext(ctx context.Context, g *Graph, settings Settings) (*Result, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	for _, p := range settings.Priorities {
		if err := g.checkOp(p.Op); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidAddress, err, "priority")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := settings.logger()
	start := time.Now()
	var tm Timings

	work := g.Clone()
	passStats, err := strengthen(work, settings.Passes, logger)
	if err != nil {
		return nil, err
	}
	tm.Passes = time.Since(start)
	logger.Debug("passes done", "rounds", passStats.Rounds, "changes", passStats.Changes,
		"edges", work.NEdges(), "links", work.NLinks())

	t := time.Now()
	initial, err := kahn(work.Merge(), &settings)
	if err != nil {
		return nil, err
	}
	tm.Kahn = time.Since(t)

	t = time.Now()
	s, err := newScheduled(work, initial)
	if err != nil {
		return nil, err
	}
	tm.Init = time.Since(t)

	t = time.Now()
	rs, err := newRotator(ctx, s, &settings, settings.Observer).run()
	if err != nil {
		return nil, err
	}
	tm.Rotate = time.Since(t)

	order := append([]OpAddress(nil), s.schToOp...)
	if settings.DebugMode {
		if err := ValidateOrder(g, order); err != nil {
			return nil, wrapCode(err, "final schedule")
		}
	}
	tm.Total = time.Since(start)

	res := &Result{
		Order:        order,
		InitialOrder: initial,
		Summary: Summary{
			RunID:              uuid.NewString(),
			NOps:               g.NOps(),
			NAllocs:            g.NAllocs(),
			NEdges:             g.NEdges(),
			NLinks:             g.NLinks(),
			InitialSumLiveness: SumLiveness(g, initial),
			FinalSumLiveness:   SumLiveness(g, order),
			InitialMaxLiveness: MaxLiveness(g, initial),
			FinalMaxLiveness:   MaxLiveness(g, order),
			TotalDelta:         rs.totalDelta,
			NRotations:         rs.rotations,
			NRounds:            rs.rounds,
			NResetsToOne:       rs.resetsToOne,
			FinalWindow:        rs.finalWindow,
			Passes:             passStats,
			Timings:            tm,
		},
	}
	logger.Info("schedule complete", "run_id", res.Summary.RunID, "ops", g.NOps(),
		"initial_sum", res.Summary.InitialSumLiveness, "final_sum", res.Summary.FinalSumLiveness,
		"rotations", rs.rotations, "elapsed", tm.Total.Round(time.Millisecond))
	return res, nil
}
