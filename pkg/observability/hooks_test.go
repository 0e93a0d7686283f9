package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Scheduler hooks
	s := NoopSchedulerHooks{}
	s.OnScheduleStart(ctx, 100, 40)
	s.OnRound(ctx, 1, 1, 12, time.Millisecond)
	s.OnScheduleComplete(ctx, Outcome{Source: "search", NRotations: 12}, time.Second, nil)
	s.OnScheduleComplete(ctx, Outcome{}, time.Second, errors.New("cycle"))

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "schedule")
	c.OnCacheMiss(ctx, "schedule")
	c.OnCacheSet(ctx, "render", 1024)

	// Server hooks
	h := NoopServerHooks{}
	h.OnRequest(ctx, "POST", "/v1/schedule")
	h.OnResponse(ctx, "POST", "/v1/schedule", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Scheduler().(NoopSchedulerHooks); !ok {
		t.Error("Scheduler() should return NoopSchedulerHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}

	customScheduler := &testSchedulerHooks{}
	SetSchedulerHooks(customScheduler)
	if Scheduler() != customScheduler {
		t.Error("SetSchedulerHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customServer := &testServerHooks{}
	SetServerHooks(customServer)
	if Server() != customServer {
		t.Error("SetServerHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Scheduler().(NoopSchedulerHooks); !ok {
		t.Error("Reset() should restore NoopSchedulerHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSchedulerHooks{}
	SetSchedulerHooks(custom)

	// Setting nil should be ignored
	SetSchedulerHooks(nil)

	if Scheduler() != custom {
		t.Error("SetSchedulerHooks(nil) should be ignored")
	}

	Reset()
}

func TestRoundObserverForwards(t *testing.T) {
	h := &testSchedulerHooks{}
	obs := RoundObserver(context.Background(), h)
	obs.OnRound(1, 1, 5, time.Millisecond)
	obs.OnRound(2, 2, 0, time.Millisecond)

	if h.rounds != 2 {
		t.Errorf("rounds = %d, want 2", h.rounds)
	}
	if h.changes != 5 {
		t.Errorf("changes = %d, want 5", h.changes)
	}
	if h.lastWindow != 2 {
		t.Errorf("lastWindow = %d, want 2", h.lastWindow)
	}
}

// Test implementations
type testSchedulerHooks struct {
	NoopSchedulerHooks
	rounds     int
	changes    int64
	lastWindow int
}

func (h *testSchedulerHooks) OnRound(_ context.Context, _ int64, window int, changes int64, _ time.Duration) {
	h.rounds++
	h.changes += changes
	h.lastWindow = window
}

type testCacheHooks struct{ NoopCacheHooks }
type testServerHooks struct{ NoopServerHooks }
