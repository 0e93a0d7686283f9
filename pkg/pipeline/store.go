package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/observability"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Cache key types reported to [observability.CacheHooks].
const (
	keyTypeSchedule = "schedule"
	keyTypeRender   = "render"
)

// storedSolution is the cached form of a [shift.Result].
type storedSolution struct {
	Order        []shift.OpAddress `json:"order"`
	InitialOrder []shift.OpAddress `json:"initial_order"`
	Summary      shift.Summary     `json:"summary"`
}

// SolutionStore keeps computed schedules in a cache, keyed by the content of
// the graph and the settings.
//
// A cached order is only returned after [shift.ValidateOrder] accepts it for
// the graph at hand. Entries that fail to decode or validate are deleted and
// reported as misses.
type SolutionStore struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Hooks  observability.CacheHooks
	Logger *log.Logger
}

// NewSolutionStore creates a store. A nil cache disables caching and a nil
// keyer selects the default keyer.
func NewSolutionStore(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *SolutionStore {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SolutionStore{Cache: c, Keyer: keyer, Hooks: observability.Cache(), Logger: logger}
}

// GraphHash returns the content hash of g.
func GraphHash(g *shift.Graph) (string, error) {
	h, err := cache.HashJSON(g)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash graph")
	}
	return h, nil
}

// SettingsHash returns the content hash of the serializable settings.
// Logger and Observer do not take part.
func SettingsHash(s shift.Settings) (string, error) {
	h, err := cache.HashJSON(s)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash settings")
	}
	return h, nil
}

func (s *SolutionStore) key(g *shift.Graph, settings shift.Settings) (string, error) {
	gh, err := GraphHash(g)
	if err != nil {
		return "", err
	}
	sh, err := SettingsHash(settings)
	if err != nil {
		return "", err
	}
	return s.Keyer.ScheduleKey(gh, sh), nil
}

// Lookup returns the stored result for g under settings. Backend failures
// are returned as errors; callers usually treat them as misses.
func (s *SolutionStore) Lookup(ctx context.Context, g *shift.Graph, settings shift.Settings) (*shift.Result, bool, error) {
	key, err := s.key(g, settings)
	if err != nil {
		return nil, false, err
	}
	data, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "lookup schedule")
	}
	if !ok {
		s.hooks().OnCacheMiss(ctx, keyTypeSchedule)
		return nil, false, nil
	}

	var sol storedSolution
	if err := json.Unmarshal(data, &sol); err != nil {
		s.Logger.Warn("dropping undecodable cached schedule", "key", key, "err", err)
		s.drop(ctx, key)
		return nil, false, nil
	}
	if err := shift.ValidateOrder(g, sol.Order); err != nil {
		s.Logger.Warn("dropping invalid cached schedule", "key", key, "err", err)
		s.drop(ctx, key)
		return nil, false, nil
	}
	s.hooks().OnCacheHit(ctx, keyTypeSchedule)
	return &shift.Result{Order: sol.Order, InitialOrder: sol.InitialOrder, Summary: sol.Summary}, true, nil
}

// Store records res for g under settings.
func (s *SolutionStore) Store(ctx context.Context, g *shift.Graph, settings shift.Settings, res *shift.Result, ttl time.Duration) error {
	key, err := s.key(g, settings)
	if err != nil {
		return err
	}
	data, err := json.Marshal(storedSolution{Order: res.Order, InitialOrder: res.InitialOrder, Summary: res.Summary})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode schedule")
	}
	if err := s.Cache.Set(ctx, key, data, ttl); err != nil {
		return errors.Wrap(errors.ErrCodeCacheUnavailable, err, "store schedule")
	}
	s.hooks().OnCacheSet(ctx, keyTypeSchedule, len(data))
	return nil
}

func (s *SolutionStore) drop(ctx context.Context, key string) {
	s.hooks().OnCacheMiss(ctx, keyTypeSchedule)
	if err := s.Cache.Delete(ctx, key); err != nil {
		s.Logger.Debug("delete cached schedule", "key", key, "err", err)
	}
}

func (s *SolutionStore) hooks() observability.CacheHooks {
	if s.Hooks == nil {
		return observability.NoopCacheHooks{}
	}
	return s.Hooks
}
