package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/config"
	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Pass presets accepted by --passes.
const (
	passesDefault = "default"
	passesNone    = "none"
	passesAll     = "all"
)

// settingsFlags binds scheduler settings to flags. Only flags the user set
// override the configuration.
type settingsFlags struct {
	kahn         string
	algo         string
	seed         uint32
	maxSeconds   float64
	maxRotations int64
	passes       string
	priorities   []string
	debug        bool
}

func (f *settingsFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.kahn, "kahn", string(shift.KahnGreedy), "initial order tie breaker: "+strings.Join(shift.KahnTieBreakers, ", "))
	fs.StringVar(&f.algo, "algo", string(shift.RotationRipple), "move evaluation: "+strings.Join(shift.RotationAlgos, ", "))
	fs.Uint32Var(&f.seed, "seed", shift.DefaultSeed, "seed of the random tie breaker and sweep order")
	fs.Float64Var(&f.maxSeconds, "max-seconds", 0, "stop the shift search after this many seconds")
	fs.Int64Var(&f.maxRotations, "max-rotations", 0, "stop the shift search after this many moves")
	fs.StringVar(&f.passes, "passes", passesDefault, "constraint passes: default, none, all")
	fs.StringSliceVar(&f.priorities, "priority", nil, "raise an op during the initial sort, as OP=VALUE (repeatable)")
	fs.BoolVar(&f.debug, "debug", false, "cross-check every move (slow)")
}

// apply copies the changed flags into s.
func (f *settingsFlags) apply(fs *pflag.FlagSet, s *shift.Settings) error {
	if fs.Changed("kahn") {
		kt, err := shift.ParseKahnTieBreaker(f.kahn)
		if err != nil {
			return err
		}
		s.KahnTieBreaker = kt
	}
	if fs.Changed("algo") {
		ra, err := shift.ParseRotationAlgo(f.algo)
		if err != nil {
			return err
		}
		s.RotationAlgo = ra
	}
	if fs.Changed("seed") {
		s.Seed = f.seed
	}
	if fs.Changed("max-seconds") {
		s.Termination.MaxSeconds = f.maxSeconds
	}
	if fs.Changed("max-rotations") {
		s.Termination.MaxRotations = f.maxRotations
	}
	if fs.Changed("passes") {
		maxIter := s.Passes.MaxIterations
		switch strings.ToLower(f.passes) {
		case passesDefault:
			s.Passes = shift.DefaultPasses()
		case passesNone:
			s.Passes = shift.NoPasses()
		case passesAll:
			s.Passes = shift.AllPasses()
		default:
			return errors.New(errors.ErrCodeInvalidSetting, "invalid passes %q (must be one of: default, none, all)", f.passes)
		}
		s.Passes.MaxIterations = maxIter
	}
	if fs.Changed("priority") {
		prios, err := parsePriorities(f.priorities)
		if err != nil {
			return err
		}
		s.Priorities = prios
	}
	if fs.Changed("debug") {
		s.DebugMode = f.debug
	}
	return s.Validate()
}

// parsePriorities parses OP=VALUE pairs.
func parsePriorities(pairs []string) ([]shift.Priority, error) {
	out := make([]shift.Priority, 0, len(pairs))
	for _, pair := range pairs {
		opStr, valStr, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidSetting, "priority %q must be OP=VALUE", pair)
		}
		op, err := strconv.Atoi(strings.TrimSpace(opStr))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSetting, err, "priority %q: op", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSetting, err, "priority %q: value", pair)
		}
		out = append(out, shift.Priority{Op: op, Value: v})
	}
	return out, nil
}

// cacheFlag binds --cache and --cache-namespace, overriding the configured
// values when set.
type cacheFlag struct{ backend, namespace string }

func (f *cacheFlag) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.backend, "cache", cache.BackendFile, "solution cache: "+strings.Join(cache.Backends, ", "))
	fs.StringVar(&f.namespace, "cache-namespace", "", "scope cache keys, e.g. per team or model family")
}

func (f *cacheFlag) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("cache") {
		cfg.Cache.Backend = f.backend
	}
	if fs.Changed("cache-namespace") {
		cfg.Cache.Namespace = f.namespace
	}
	return cfg.Validate()
}
