package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/observability"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Runner encapsulates scheduling with caching.
// Both CLI and API use it so lookups, validation and storage behave the same.
//
// The Runner is stateless except for its store and logger. Multiple
// goroutines can safely use the same Runner with different graphs.
type Runner struct {
	Store  *SolutionStore
	Logger *log.Logger
	Hooks  observability.SchedulerHooks
}

// NewRunner creates a runner over the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Store:  NewSolutionStore(c, keyer, logger),
		Logger: logger,
		Hooks:  observability.Scheduler(),
	}
}

// Execute schedules g, answering from the cache when an equal graph was
// scheduled with equal settings before. g is not modified.
//
// Cancelling ctx aborts the search. A deadline on ctx bounds the search
// time in addition to the settings' own termination. A cache that fails is
// logged and bypassed.
func (r *Runner) Execute(ctx context.Context, g *shift.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	hooks := r.hooks()
	start := time.Now()
	hooks.OnScheduleStart(ctx, g.NOps(), g.NAllocs())

	res, err := r.execute(ctx, g, &opts, logger, hooks)

	out := observability.Outcome{Source: SourceSearch}
	if res != nil {
		s := res.Summary
		out = observability.Outcome{
			Source:       res.Source,
			NRotations:   s.NRotations,
			NRounds:      s.NRounds,
			InitialSum:   s.InitialSumLiveness.Scalar(),
			FinalSum:     s.FinalSumLiveness.Scalar(),
			SearchWindow: s.FinalWindow,
		}
	}
	hooks.OnScheduleComplete(ctx, out, time.Since(start), err)
	return res, err
}

func (r *Runner) execute(ctx context.Context, g *shift.Graph, opts *Options, logger *log.Logger, hooks observability.SchedulerHooks) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gh, err := GraphHash(g)
	if err != nil {
		return nil, err
	}
	sh, err := SettingsHash(opts.Settings)
	if err != nil {
		return nil, err
	}
	result := &Result{GraphHash: gh, SettingsHash: sh}

	// Stage 1: Lookup
	if !opts.Refresh {
		t := time.Now()
		cached, hit, err := r.Store.Lookup(ctx, g, opts.Settings)
		result.Stats.LookupTime = time.Since(t)
		if err != nil {
			logger.Warn("schedule cache unavailable", "err", err)
		}
		if hit {
			logger.Info("schedule cache hit", "ops", g.NOps(),
				"final_sum", cached.Summary.FinalSumLiveness)
			result.Result = cached
			result.Source = SourceCache
		}
	}

	// Stage 2: Schedule
	if result.Result == nil {
		settings := opts.Settings
		settings.Logger = logger
		settings.Observer = chainObservers(settings.Observer, observability.RoundObserver(ctx, hooks))
		boundByDeadline(ctx, &settings.Termination)

		t := time.Now()
		res, err := shift.ScheduleContext(ctx, g, settings)
		if err != nil {
			return nil, err
		}
		result.Stats.ScheduleTime = time.Since(t)
		result.Result = res
		result.Source = SourceSearch

		if err := r.Store.Store(ctx, g, opts.Settings, res, opts.TTL); err != nil {
			logger.Warn("could not store schedule", "err", err)
		}
	}

	// Stage 3: Render
	if len(opts.Formats) > 0 {
		t := time.Now()
		artifacts, hit, err := r.render(ctx, g, result, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(t)
		result.Stats.RenderHit = hit
		logger.Debug("rendered outputs", "formats", opts.Formats, "cached", hit,
			"duration", result.Stats.RenderTime)
	}
	return result, nil
}

// BestOf runs [Runner.Execute] once per seed, concurrently, and returns the
// result with the lowest final sum liveness. Ties go to the lower seed.
// Seeds only change the outcome with the random Kahn tie breaker.
func (r *Runner) BestOf(ctx context.Context, g *shift.Graph, opts Options, seeds []uint32) (*Result, error) {
	if len(seeds) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSetting, "best-of needs at least one seed")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	results := make([]*Result, len(seeds))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, seed := range seeds {
		eg.Go(func() error {
			o := opts
			o.Settings.Seed = seed
			o.Formats = nil
			o.Logger = logger.With("seed", seed)
			res, err := r.Execute(egCtx, g.Clone(), o)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(results); i++ {
		c := results[i].Summary.FinalSumLiveness.Cmp(results[best].Summary.FinalSumLiveness)
		if c < 0 || (c == 0 && seeds[i] < seeds[best]) {
			best = i
		}
	}
	logger.Info("best of seeds", "seeds", len(seeds), "seed", seeds[best],
		"final_sum", results[best].Summary.FinalSumLiveness)

	if len(opts.Formats) == 0 {
		return results[best], nil
	}
	// Render only the winner.
	winner := results[best]
	o := opts
	o.Settings.Seed = seeds[best]
	artifacts, hit, err := r.render(ctx, g, winner, &o)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	winner.Artifacts = artifacts
	winner.Stats.RenderHit = hit
	return winner, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Store != nil && r.Store.Cache != nil {
		return r.Store.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) hooks() observability.SchedulerHooks {
	if r.Hooks == nil {
		return observability.NoopSchedulerHooks{}
	}
	return r.Hooks
}

// boundByDeadline lowers MaxSeconds to the time left before the deadline of
// ctx. An expired deadline disables the search.
func boundByDeadline(ctx context.Context, t *shift.RotationTermination) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return
	}
	left := time.Until(deadline).Seconds()
	t.MaxSeconds = math.Min(t.MaxSeconds, math.Max(left, 0))
}

type roundObservers []shift.RoundObserver

func (o roundObservers) OnRound(round int64, window int, changes int64, elapsed time.Duration) {
	for _, obs := range o {
		obs.OnRound(round, window, changes, elapsed)
	}
}

func chainObservers(first, second shift.RoundObserver) shift.RoundObserver {
	if first == nil {
		return second
	}
	return roundObservers{first, second}
}
