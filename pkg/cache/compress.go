package cache

import (
	"context"
	"errors"
	"time"

	"github.com/klauspost/compress/zstd"
)

// CompressedCache zstd-compresses values before handing them to the inner
// cache. Values that fail to decompress are reported as misses.
type CompressedCache struct {
	inner Cache
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// Compressed wraps inner.
func Compressed(inner Cache) (*CompressedCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &CompressedCache{inner: inner, enc: enc, dec: dec}, nil
}

func (c *CompressedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	data, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, nil
	}
	return data, true, nil
}

func (c *CompressedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, c.enc.EncodeAll(data, nil), ttl)
}

func (c *CompressedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Clear forwards to the inner cache when it supports clearing.
func (c *CompressedCache) Clear(ctx context.Context) error {
	if cl, ok := c.inner.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return errors.New("cache backend cannot be cleared")
}

func (c *CompressedCache) Close() error {
	c.dec.Close()
	return errors.Join(c.enc.Close(), c.inner.Close())
}

var (
	_ Cache   = (*CompressedCache)(nil)
	_ Clearer = (*CompressedCache)(nil)
)
