package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/shiftsched/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Backends lists every accepted backend name.
var Backends = []string{BackendNone, BackendFile, BackendMemory, BackendBadger, BackendRedis, BackendMongo}

// Config selects and configures a backend.
type Config struct {
	Backend string `toml:"backend"`
	// Dir is the root of the file and badger backends. Empty means
	// [DefaultDir].
	Dir string `toml:"dir"`
	// MemoryBytes bounds the memory backend.
	MemoryBytes uint64 `toml:"memory_bytes"`
	RedisURL    string `toml:"redis_url"`
	MongoURI    string `toml:"mongo_uri"`
	// Prefix namespaces Redis keys.
	Prefix string `toml:"prefix"`
	// Namespace scopes schedule and render keys on any backend, so setups
	// sharing one store never read each other's entries.
	Namespace string `toml:"namespace"`
	// Compress wraps the backend with zstd compression.
	Compress bool `toml:"compress"`

	Logger *log.Logger `toml:"-"`
}

// DefaultDir returns the per-user cache directory, ~/.cache/shiftsched on
// Linux.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "shiftsched"), nil
}

// NewKeyer returns the keyer for cfg: the default keyer, scoped to
// cfg.Namespace when one is set.
func NewKeyer(cfg Config) Keyer {
	if cfg.Namespace == "" {
		return NewDefaultKeyer()
	}
	return NewScopedKeyer(nil, cfg.Namespace+":")
}

// Open builds the configured backend. Failures to reach a remote backend
// are reported with [errors.ErrCodeCacheUnavailable].
func Open(ctx context.Context, cfg Config) (Cache, error) {
	backend, err := errors.ParseEnum("cache backend", cfg.Backend, Backends)
	if err != nil {
		return nil, err
	}
	dir := cfg.Dir
	if dir == "" && (backend == BackendFile || backend == BackendBadger) {
		if dir, err = DefaultDir(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "resolve cache directory")
		}
		if backend == BackendBadger {
			dir = filepath.Join(dir, "badger")
		}
	}

	var c Cache
	switch backend {
	case BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		c, err = NewFileCache(dir)
	case BackendMemory:
		c, err = NewMemoryCache(cfg.MemoryBytes)
	case BackendBadger:
		c, err = NewBadgerCache(BadgerConfig{Dir: dir, Logger: cfg.Logger})
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New(errors.ErrCodeInvalidSetting, "redis cache requires a url")
		}
		c, err = NewRedisCache(ctx, cfg.RedisURL, cfg.Prefix)
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, errors.New(errors.ErrCodeInvalidSetting, "mongo cache requires a uri")
		}
		c, err = NewMongoCache(ctx, MongoConfig{URI: cfg.MongoURI})
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "open %s cache", backend)
	}
	if !cfg.Compress {
		return c, nil
	}
	cc, err := Compressed(c)
	if err != nil {
		c.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create zstd codec")
	}
	return cc, nil
}
