package cache

// ScopedKeyer prefixes every key of an inner keyer, so several tenants or
// tool versions can share one backend without collisions:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "v2:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ScheduleKey(graphHash, settingsHash string) string {
	return k.prefix + k.inner.ScheduleKey(graphHash, settingsHash)
}

func (k *ScopedKeyer) RenderKey(graphHash, format string) string {
	return k.prefix + k.inner.RenderKey(graphHash, format)
}
