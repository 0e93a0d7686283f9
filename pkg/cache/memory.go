package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
)

// DefaultMemoryBytes bounds a memory cache created with a zero size.
const DefaultMemoryBytes = 64 << 20

// noExpiry stands in for "never" in otter's per-entry expiry.
const noExpiry = 100 * 365 * 24 * time.Hour

type memoryValue struct {
	data []byte
	ttl  time.Duration
}

// MemoryCache is an in-process cache bounded by the total size of its
// values. Least valuable entries are evicted first.
type MemoryCache struct {
	c *otter.Cache[string, memoryValue]
}

// NewMemoryCache returns a cache holding at most maxBytes of values.
func NewMemoryCache(maxBytes uint64) (*MemoryCache, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMemoryBytes
	}
	c, err := otter.New(&otter.Options[string, memoryValue]{
		MaximumWeight: maxBytes,
		Weigher: func(key string, v memoryValue) uint32 {
			return uint32(len(key) + len(v.data))
		},
		ExpiryCalculator: otter.ExpiryWritingFunc(func(e otter.Entry[string, memoryValue]) time.Duration {
			if e.Value.ttl <= 0 {
				return noExpiry
			}
			return e.Value.ttl
		}),
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.GetIfPresent(key)
	if !ok {
		return nil, false, nil
	}
	return v.data, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.c.Set(key, memoryValue{data: data, ttl: ttl})
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.c.Invalidate(key)
	return nil
}

func (m *MemoryCache) Clear(context.Context) error {
	m.c.InvalidateAll()
	return nil
}

// Len returns the number of live entries.
func (m *MemoryCache) Len() int {
	return m.c.EstimatedSize()
}

// Close drops every entry.
func (m *MemoryCache) Close() error {
	m.c.InvalidateAll()
	return nil
}

var (
	_ Cache   = (*MemoryCache)(nil)
	_ Clearer = (*MemoryCache)(nil)
)
