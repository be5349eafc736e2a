package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/logger"
)

// Gate errors
var (
	ErrGateUnavailable = errors.New("cooldown state unavailable")
)

// Gate serializes alert cycles and enforces the minimum interval between
// them. State lives in Redis under two keys:
//
//	<prefix>last  unix-milli timestamp of the last committed cycle
//	<prefix>lock  in-flight cycle lock (SET NX with TTL)
//
// TryOpen acquires the lock before checking the interval, so the
// check-then-act sequence behaves as a single compare-and-set: a second
// notifiable reading racing the first cycle is rejected instead of running a
// parallel fan-out. The lock TTL bounds how long a crashed cycle can hold
// the gate; the last-alert timestamp is only advanced by Commit, so on any
// ambiguity the next reading re-evaluates (an extra alert is preferred over
// a wedged gate).
type Gate struct {
	redisClient *redis.Client
	interval    time.Duration
	lockTTL     time.Duration
	lastKey     string
	lockKey     string
}

// Config holds gate configuration
type Config struct {
	Interval  time.Duration
	LockTTL   time.Duration
	KeyPrefix string
}

// NewGate creates a cooldown gate backed by the given Redis client
func NewGate(redisClient *redis.Client, cfg Config) *Gate {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "alert:cooldown:"
	}

	return &Gate{
		redisClient: redisClient,
		interval:    cfg.Interval,
		lockTTL:     cfg.LockTTL,
		lastKey:     cfg.KeyPrefix + "last",
		lockKey:     cfg.KeyPrefix + "lock",
	}
}

// Interval returns the configured suppression interval
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// TryOpen attempts to start an alert cycle at the given time. It returns
// true only when no other cycle is in flight and at least the configured
// interval has passed since the last committed cycle (or none exists). On
// true the caller owns the cycle and must finish it with Commit or Abort.
func (g *Gate) TryOpen(ctx context.Context, now time.Time) (bool, error) {
	acquired, err := g.redisClient.SetNX(ctx, g.lockKey, now.UnixMilli(), g.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to acquire cycle lock: %v", ErrGateUnavailable, err)
	}
	if !acquired {
		// Another cycle is mid-dispatch
		return false, nil
	}

	raw, err := g.redisClient.Get(ctx, g.lastKey).Result()
	if err == redis.Nil {
		// No prior alert: the first reading ever observed opens the gate
		return true, nil
	}
	if err != nil {
		g.release(ctx)
		return false, fmt.Errorf("%w: failed to read last alert time: %v", ErrGateUnavailable, err)
	}

	last, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Corrupt state: treat as no prior alert rather than wedging closed
		log := logger.WithComponent("cooldown")
		log.Warn().
			Str("value", raw).
			Msg("unparseable last-alert timestamp, treating gate as open")
		return true, nil
	}

	if now.UnixMilli()-last >= g.interval.Milliseconds() {
		return true, nil
	}

	g.release(ctx)
	return false, nil
}

// Commit records the cycle time and releases the cycle lock. Called only
// after every delivery record has been persisted. A failed write is logged
// as an anomaly and the lock is still released, so the next qualifying
// reading re-evaluates instead of being suppressed by stale state.
func (g *Gate) Commit(ctx context.Context, now time.Time) error {
	err := g.redisClient.Set(ctx, g.lastKey, now.UnixMilli(), 0).Err()
	g.release(ctx)
	if err != nil {
		log := logger.WithComponent("cooldown")
		log.Error().
			Err(err).
			Time("cycle_time", now).
			Msg("anomaly: alert dispatched but cooldown not advanced")
		return fmt.Errorf("failed to commit cooldown state: %w", err)
	}
	return nil
}

// Abort releases the cycle lock without advancing the last-alert time. Used
// when the cycle fails before dispatch (e.g. the roster cannot be loaded).
func (g *Gate) Abort(ctx context.Context) {
	g.release(ctx)
}

func (g *Gate) release(ctx context.Context) {
	if err := g.redisClient.Del(ctx, g.lockKey).Err(); err != nil {
		// Lock TTL will expire it; nothing else to do
		log := logger.WithComponent("cooldown")
		log.Warn().
			Err(err).
			Msg("failed to release cycle lock")
	}
}
