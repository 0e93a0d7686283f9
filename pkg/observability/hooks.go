// Package observability provides hooks for metrics and logging.
//
// This package enables optional instrumentation without tying the scheduler
// to a specific backend. Consumers register hooks at startup to receive
// events about scheduling runs, cache lookups and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so pkg/shift and
// pkg/pipeline never import a metrics framework. [Metrics] is the
// Prometheus implementation used by the serve command.
//
// # Usage
//
// Register hooks at application startup:
//
//	m := observability.NewMetrics()
//	observability.SetSchedulerHooks(m)
//	observability.SetCacheHooks(m)
//
// Libraries call hooks to emit events:
//
//	observability.Scheduler().OnScheduleStart(ctx, g.NOps(), g.NAllocs())
//	// ... schedule ...
//	observability.Scheduler().OnScheduleComplete(ctx, outcome, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Scheduler Hooks
// =============================================================================

// Outcome summarizes a finished scheduling run for hooks.
type Outcome struct {
	Source       string // "search" or "cache"
	NRotations   int64
	NRounds      int64
	InitialSum   float64 // scalar component of the initial sum liveness
	FinalSum     float64
	SearchWindow int
}

// SchedulerHooks receives events from scheduling runs.
type SchedulerHooks interface {
	OnScheduleStart(ctx context.Context, nOps, nAllocs int)
	OnScheduleComplete(ctx context.Context, out Outcome, duration time.Duration, err error)

	// OnRound is called after every sweep of the shift search.
	OnRound(ctx context.Context, round int64, window int, changes int64, elapsed time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations. keyType is "schedule"
// or "render".
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the HTTP API.
type ServerHooks interface {
	// OnRequest records an incoming request before routing, so route is
	// the raw path.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response written for a request. route is the
	// matched chi route pattern.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSchedulerHooks is a no-op implementation of SchedulerHooks.
type NoopSchedulerHooks struct{}

func (NoopSchedulerHooks) OnScheduleStart(context.Context, int, int) {}
func (NoopSchedulerHooks) OnScheduleComplete(context.Context, Outcome, time.Duration, error) {
}
func (NoopSchedulerHooks) OnRound(context.Context, int64, int, int64, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Round observer adapter
// =============================================================================

// RoundObserver forwards shift search rounds to the OnRound hook of h. The
// result satisfies shift.RoundObserver.
func RoundObserver(ctx context.Context, h SchedulerHooks) *RoundForwarder {
	return &RoundForwarder{ctx: ctx, hooks: h}
}

// RoundForwarder binds a context to [SchedulerHooks.OnRound].
type RoundForwarder struct {
	ctx   context.Context
	hooks SchedulerHooks
}

func (f *RoundForwarder) OnRound(round int64, window int, changes int64, elapsed time.Duration) {
	f.hooks.OnRound(f.ctx, round, window, changes, elapsed)
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	schedulerHooks SchedulerHooks = NoopSchedulerHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	serverHooks    ServerHooks    = NoopServerHooks{}
	hooksMu        sync.RWMutex
)

// SetSchedulerHooks registers custom scheduler hooks.
// This should be called once at application startup before any runs.
func SetSchedulerHooks(h SchedulerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		schedulerHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom server hooks.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Scheduler returns the registered scheduler hooks.
func Scheduler() SchedulerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return schedulerHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	schedulerHooks = NoopSchedulerHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
