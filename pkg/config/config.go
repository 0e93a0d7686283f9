// Package config loads shiftsched settings from TOML files.
//
// A file only needs the keys it changes; everything else keeps the value
// from [Default]:
//
//	[settings]
//	kahn_tie_breaker = "fifo"
//	rotation_algo = "simple"
//
//	[settings.termination]
//	max_seconds = 30.0
//
//	[settings.passes]
//	constrain_parallel_chains = false
//
//	[[settings.priorities]]
//	op = 3
//	value = 10.0
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
//	request_timeout = "2m"
//
// Unknown keys are an error, so typos do not silently fall back to defaults.
package config

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/shiftsched/pkg/cache"
	"github.com/matzehuels/shiftsched/pkg/errors"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// Environment variables consulted by [ApplyEnv].
const (
	EnvCacheBackend = "SHIFTSCHED_CACHE"
	EnvRedisURL     = "SHIFTSCHED_REDIS_URL"
	EnvMongoURI     = "SHIFTSCHED_MONGO_URI"
)

// Server configures the HTTP API of the serve command.
type Server struct {
	Addr           string        `toml:"addr"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	// MaxBodyBytes bounds the size of a posted graph.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
	// MaxSeconds caps the search time of every request regardless of the
	// settings it carries.
	MaxSeconds float64 `toml:"max_seconds"`
	// MaxSeeds bounds the seeds of one best-of request. Zero means no limit.
	MaxSeeds int `toml:"max_seeds"`
}

// Config is the content of a settings file.
type Config struct {
	Settings shift.Settings `toml:"settings"`
	Cache    cache.Config   `toml:"cache"`
	Server   Server         `toml:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Settings: shift.DefaultSettings(),
		Cache:    cache.Config{Backend: cache.BackendFile},
		Server: Server{
			Addr:           ":8080",
			RequestTimeout: 2 * time.Minute,
			MaxBodyBytes:   32 << 20,
			MaxSeconds:     60,
			MaxSeeds:       16,
		},
	}
}

// Load reads path on top of [Default] and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return Config{}, errors.Wrap(errors.GetCode(err), err, "%s", path)
	}
	return cfg, nil
}

// Read decodes a TOML document on top of [Default] and validates the result.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidSetting, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the scheduler settings and the cache backend name.
func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Cache.Backend != "" {
		b, err := errors.ParseEnum("cache backend", c.Cache.Backend, cache.Backends)
		if err != nil {
			return err
		}
		c.Cache.Backend = b
	}
	if c.Server.RequestTimeout < 0 || c.Server.MaxBodyBytes < 0 || c.Server.MaxSeeds < 0 {
		return errors.New(errors.ErrCodeInvalidSetting, "server limits must be non-negative")
	}
	return nil
}

// ApplyEnv reads cache settings from the environment. A backend set there
// wins over the file; connection strings only fill empty fields. lookup is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvCacheBackend); ok && v != "" {
		c.Cache.Backend = v
	}
	if v, ok := lookup(EnvRedisURL); ok && c.Cache.RedisURL == "" {
		c.Cache.RedisURL = v
	}
	if v, ok := lookup(EnvMongoURI); ok && c.Cache.MongoURI == "" {
		c.Cache.MongoURI = v
	}
}

// Write encodes c as TOML. Runtime-only fields are omitted.
func Write(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
