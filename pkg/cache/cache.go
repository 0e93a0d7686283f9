// Package cache stores scheduling results so identical requests are answered
// without running the optimizer again.
//
// Entries are opaque byte slices addressed by string keys, with an optional
// time-to-live. Several backends implement [Cache]:
//   - file: one JSON file per entry under a directory, for the CLI
//   - memory: an in-process otter cache, for the HTTP server
//   - badger: an embedded BadgerDB store that survives restarts
//   - redis: a shared Redis instance for multi-instance deployments
//   - mongo: a MongoDB collection with a TTL index
//   - null: stores nothing
//
// Any backend can be wrapped with [Compressed] to zstd-compress values.
//
// # Keys
//
// A [Keyer] derives keys from content hashes. Keys never embed raw input, so
// they have a bounded length and are safe as file names and Redis keys:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ScheduleKey(graphHash, settingsHash)
//
// # Usage
//
//	c, err := cache.Open(ctx, cache.Config{Backend: cache.BackendFile, Dir: dir})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if data, ok, err := c.Get(ctx, key); err == nil && ok {
//	    // use data
//	}
//	_ = c.Set(ctx, key, data, 24*time.Hour)
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. A ttl of zero or less stores
// the entry without expiry. Get reports a miss with ok == false and a nil
// error; errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by backends that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Keyer builds cache keys.
type Keyer interface {
	// ScheduleKey addresses the order computed for a graph under settings.
	ScheduleKey(graphHash, settingsHash string) string
	// RenderKey addresses a rendered artifact of a scheduled graph.
	RenderKey(graphHash, format string) string
}

// DefaultKeyer produces "schedule:<hash>" and "render:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) ScheduleKey(graphHash, settingsHash string) string {
	return hashKey("schedule", graphHash, settingsHash)
}

func (DefaultKeyer) RenderKey(graphHash, format string) string {
	return hashKey("render", graphHash, format)
}
