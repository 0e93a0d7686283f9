package shift

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// KahnTieBreaker selects which ready op the initial Kahn sort takes next.
type KahnTieBreaker string

const (
	// KahnRandom picks uniformly among ready ops with a seeded generator.
	KahnRandom KahnTieBreaker = "random"
	// KahnFIFO takes ready ops in the order they became ready.
	KahnFIFO KahnTieBreaker = "fifo"
	// KahnGreedy takes the ready op that increases live weight the least.
	KahnGreedy KahnTieBreaker = "greedy"
)

// KahnTieBreakers lists every accepted tie breaker.
var KahnTieBreakers = []string{string(KahnRandom), string(KahnFIFO), string(KahnGreedy)}

// ParseKahnTieBreaker parses a tie breaker name case-insensitively.
func ParseKahnTieBreaker(s string) (KahnTieBreaker, error) {
	v, err := errors.ParseEnum("kahn tie breaker", s, KahnTieBreakers)
	return KahnTieBreaker(v), err
}

// RotationAlgo selects how the shift search evaluates candidate moves.
type RotationAlgo string

const (
	// RotationSimple recomputes liveness from scratch for every destination.
	RotationSimple RotationAlgo = "simple"
	// RotationRipple updates the cost incrementally between destinations.
	RotationRipple RotationAlgo = "ripple"
)

// RotationAlgos lists every accepted rotation algorithm.
var RotationAlgos = []string{string(RotationSimple), string(RotationRipple)}

// ParseRotationAlgo parses a rotation algorithm name case-insensitively.
func ParseRotationAlgo(s string) (RotationAlgo, error) {
	v, err := errors.ParseEnum("rotation algorithm", s, RotationAlgos)
	return RotationAlgo(v), err
}

// Default settings.
const (
	DefaultSeed              uint32  = 1011
	DefaultMaxSeconds        float64 = math.MaxFloat64
	DefaultMaxRotations      int64   = math.MaxInt64
	DefaultMaxPassIterations         = 64
)

// RotationTermination bounds the shift search. Either bound at or below zero
// disables the search entirely. Exhausting a bound is not an error.
type RotationTermination struct {
	MaxSeconds   float64 `json:"max_seconds" toml:"max_seconds"`
	MaxRotations int64   `json:"max_rotations" toml:"max_rotations"`
}

// Unbounded returns a termination that only stops at convergence.
func Unbounded() RotationTermination {
	return RotationTermination{MaxSeconds: DefaultMaxSeconds, MaxRotations: DefaultMaxRotations}
}

// Disabled returns a termination that skips the shift search.
func Disabled() RotationTermination {
	return RotationTermination{}
}

func (t RotationTermination) enabled() bool {
	return t.MaxSeconds > 0 && t.MaxRotations > 0
}

// Passes enables the constraint-strengthening passes that run before the
// initial schedule. The first five only add constraints that keep at least
// one optimal schedule reachable. The alloc simplifiers rewrite the cost
// model itself and are off by default.
type Passes struct {
	LinkTightDrops                 bool `json:"link_tight_drops" toml:"link_tight_drops"`
	LinkCloseTightPairs            bool `json:"link_close_tight_pairs" toml:"link_close_tight_pairs"`
	ConstrainWeightSeparatedGroups bool `json:"constrain_weight_separated_groups" toml:"constrain_weight_separated_groups"`
	ConstrainParallelChains        bool `json:"constrain_parallel_chains" toml:"constrain_parallel_chains"`
	SlideLinks                     bool `json:"slide_links" toml:"slide_links"`

	CombineAllocsWithCommonOps     bool `json:"combine_allocs_with_common_ops" toml:"combine_allocs_with_common_ops"`
	DisconnectAllocsWithOneOp      bool `json:"disconnect_allocs_with_one_op" toml:"disconnect_allocs_with_one_op"`
	DisconnectAllocsWithZeroWeight bool `json:"disconnect_allocs_with_zero_weight" toml:"disconnect_allocs_with_zero_weight"`
	DisconnectInbetweenerAllocs    bool `json:"disconnect_inbetweener_allocs" toml:"disconnect_inbetweener_allocs"`
	ConnectContiguousAllocs        bool `json:"connect_contiguous_allocs" toml:"connect_contiguous_allocs"`

	MaxIterations int `json:"max_iterations" toml:"max_iterations"`
}

// DefaultPasses enables the five constraint passes.
func DefaultPasses() Passes {
	return Passes{
		LinkTightDrops:                 true,
		LinkCloseTightPairs:            true,
		ConstrainWeightSeparatedGroups: true,
		ConstrainParallelChains:        true,
		SlideLinks:                     true,
		MaxIterations:                  DefaultMaxPassIterations,
	}
}

// NoPasses disables every pass.
func NoPasses() Passes {
	return Passes{MaxIterations: DefaultMaxPassIterations}
}

// AllPasses enables every pass including the alloc simplifiers.
func AllPasses() Passes {
	p := DefaultPasses()
	p.CombineAllocsWithCommonOps = true
	p.DisconnectAllocsWithOneOp = true
	p.DisconnectAllocsWithZeroWeight = true
	p.DisconnectInbetweenerAllocs = true
	p.ConnectContiguousAllocs = true
	return p
}

// Priority raises an op above ops with lower values whenever both are ready
// during the initial Kahn sort. Ops without a priority have value 0.
type Priority struct {
	Op    OpAddress `json:"op" toml:"op"`
	Value float64   `json:"value" toml:"value"`
}

// Settings configures [Schedule].
type Settings struct {
	KahnTieBreaker KahnTieBreaker      `json:"kahn_tie_breaker" toml:"kahn_tie_breaker"`
	Priorities     []Priority          `json:"priorities,omitempty" toml:"priorities"`
	Seed           uint32              `json:"seed" toml:"seed"`
	RotationAlgo   RotationAlgo        `json:"rotation_algo" toml:"rotation_algo"`
	DebugMode      bool                `json:"debug_mode" toml:"debug_mode"`
	Termination    RotationTermination `json:"termination" toml:"termination"`
	Passes         Passes              `json:"passes" toml:"passes"`

	// Logger receives progress at debug and info level. Nil discards.
	Logger *log.Logger `json:"-" toml:"-"`
	// Observer is notified after every sweep of the shift search. Optional.
	Observer RoundObserver `json:"-" toml:"-"`
}

// DefaultSettings returns greedy Kahn, ripple evaluation, the default passes
// and an unbounded search.
func DefaultSettings() Settings {
	return Settings{
		KahnTieBreaker: KahnGreedy,
		Seed:           DefaultSeed,
		RotationAlgo:   RotationRipple,
		Termination:    Unbounded(),
		Passes:         DefaultPasses(),
	}
}

// Validate checks enum fields and normalizes their spelling.
func (s *Settings) Validate() error {
	kt, err := ParseKahnTieBreaker(string(s.KahnTieBreaker))
	if err != nil {
		return err
	}
	ra, err := ParseRotationAlgo(string(s.RotationAlgo))
	if err != nil {
		return err
	}
	s.KahnTieBreaker, s.RotationAlgo = kt, ra
	if s.Passes.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidSetting,
			"max pass iterations must be non-negative, got %d", s.Passes.MaxIterations)
	}
	for _, p := range s.Priorities {
		if math.IsNaN(p.Value) {
			return errors.New(errors.ErrCodeInvalidSetting, "priority of op %d is NaN", p.Op)
		}
	}
	return nil
}

func (s *Settings) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.New(io.Discard)
}
