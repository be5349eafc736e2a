package cooldown

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestGate(t *testing.T, interval time.Duration) (*miniredis.Miniredis, *Gate) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	gate := NewGate(redisClient, Config{
		Interval:  interval,
		LockTTL:   time.Minute,
		KeyPrefix: "alert:cooldown:",
	})

	return mr, gate
}

func TestGate_FirstReadingOpens(t *testing.T) {
	_, gate := setupTestGate(t, 30*time.Minute)

	allowed, err := gate.TryOpen(context.Background(), time.Now())

	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGate_ClosedWithinInterval(t *testing.T) {
	_, gate := setupTestGate(t, 30*time.Minute)
	ctx := context.Background()

	t0 := time.Now()

	allowed, err := gate.TryOpen(ctx, t0)
	require.NoError(t, err)
	require.True(t, allowed)
	require.NoError(t, gate.Commit(ctx, t0))

	// One millisecond before the interval elapses the gate stays closed
	allowed, err = gate.TryOpen(ctx, t0.Add(30*time.Minute-time.Millisecond))
	require.NoError(t, err)
	assert.False(t, allowed)

	// Exactly at the interval it reopens
	allowed, err = gate.TryOpen(ctx, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGate_InFlightCycleRejected(t *testing.T) {
	_, gate := setupTestGate(t, 30*time.Minute)
	ctx := context.Background()

	now := time.Now()

	allowed, err := gate.TryOpen(ctx, now)
	require.NoError(t, err)
	require.True(t, allowed)

	// A second reading while the first cycle is still dispatching must not
	// start a parallel fan-out
	allowed, err = gate.TryOpen(ctx, now)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGate_AbortDoesNotAdvance(t *testing.T) {
	_, gate := setupTestGate(t, 30*time.Minute)
	ctx := context.Background()

	now := time.Now()

	allowed, err := gate.TryOpen(ctx, now)
	require.NoError(t, err)
	require.True(t, allowed)

	gate.Abort(ctx)

	// Aborted cycle leaves lastAlertAt untouched, so the next reading
	// re-opens immediately
	allowed, err = gate.TryOpen(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGate_CommitAdvancesToCycleTime(t *testing.T) {
	mr, gate := setupTestGate(t, 30*time.Minute)
	ctx := context.Background()

	t0 := time.Now()

	allowed, err := gate.TryOpen(ctx, t0)
	require.NoError(t, err)
	require.True(t, allowed)
	require.NoError(t, gate.Commit(ctx, t0))

	raw, err := mr.Get("alert:cooldown:last")
	require.NoError(t, err)
	assert.Equal(t, t0.UnixMilli(), mustParseInt(t, raw))

	// Lock must be gone after commit
	assert.False(t, mr.Exists("alert:cooldown:lock"))
}

func TestGate_ConcurrentTryOpen_OneWinner(t *testing.T) {
	_, gate := setupTestGate(t, 30*time.Minute)
	ctx := context.Background()

	now := time.Now()

	var opened atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := gate.TryOpen(ctx, now)
			if err != nil {
				t.Errorf("TryOpen returned error: %v", err)
				return
			}
			if allowed {
				opened.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), opened.Load())
}

func TestGate_CorruptStateOpens(t *testing.T) {
	mr, gate := setupTestGate(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("alert:cooldown:last", "not-a-timestamp"))

	allowed, err := gate.TryOpen(ctx, time.Now())
	require.NoError(t, err)
	assert.True(t, allowed)
}

func mustParseInt(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return n
}
