package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsScheduler(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics()

	m.OnScheduleStart(ctx, 10, 4)
	require.Equal(t, 1.0, testutil.ToFloat64(m.inflight))

	m.OnRound(ctx, 1, 1, 3, time.Millisecond)
	m.OnRound(ctx, 2, 2, 0, time.Millisecond)
	require.Equal(t, 2.0, testutil.ToFloat64(m.rounds))
	require.Equal(t, 3.0, testutil.ToFloat64(m.roundChanges))
	require.Equal(t, 2.0, testutil.ToFloat64(m.window))

	m.OnScheduleComplete(ctx, Outcome{Source: "search", NRotations: 3, InitialSum: 30, FinalSum: 20}, time.Second, nil)
	require.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
	require.Equal(t, 1.0, testutil.ToFloat64(m.schedules.WithLabelValues("search", "ok")))

	m.OnScheduleStart(ctx, 10, 4)
	m.OnScheduleComplete(ctx, Outcome{}, time.Millisecond, errors.New("cycle"))
	require.Equal(t, 1.0, testutil.ToFloat64(m.schedules.WithLabelValues("search", "error")))

	m.OnScheduleStart(ctx, 10, 4)
	m.OnScheduleComplete(ctx, Outcome{Source: "cache"}, time.Millisecond, nil)
	require.Equal(t, 1.0, testutil.ToFloat64(m.schedules.WithLabelValues("cache", "ok")))
}

func TestMetricsCacheAndServer(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics()

	m.OnCacheMiss(ctx, "schedule")
	m.OnCacheSet(ctx, "schedule", 512)
	m.OnCacheHit(ctx, "schedule")
	m.OnCacheHit(ctx, "schedule")
	require.Equal(t, 2.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("schedule", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("schedule", "miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("schedule", "set")))

	m.OnRequest(ctx, "POST", "/v1/schedule")
	m.OnResponse(ctx, "POST", "/v1/schedule", 200, 20*time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/v1/schedule", "200")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.OnCacheHit(context.Background(), "schedule")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.Contains(text, `shiftsched_cache_operations_total{key_type="schedule",result="hit"} 1`), text)
	require.Contains(t, text, "go_goroutines")
}
