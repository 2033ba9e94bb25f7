package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// NudgeLimiter allows at most one nudge per (room, sender, target) pair per
// interval.
type NudgeLimiter interface {
	Allow(ctx context.Context, code, fromID, toID string) (bool, error)
	Forget(ctx context.Context, code string) error
}

type localNudgeLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// NewLocalNudgeLimiter keeps one token bucket per pair in memory.
func NewLocalNudgeLimiter(interval time.Duration) NudgeLimiter {
	return &localNudgeLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

func pairKey(code, fromID, toID string) string {
	return fmt.Sprintf("room:%s:nudge:%s:%s", code, fromID, toID)
}

func (l *localNudgeLimiter) Allow(_ context.Context, code, fromID, toID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := pairKey(code, fromID, toID)
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[key] = lim
	}
	return lim.Allow(), nil
}

func (l *localNudgeLimiter) Forget(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := fmt.Sprintf("room:%s:nudge:", code)
	for k := range l.limiters {
		if strings.HasPrefix(k, prefix) {
			delete(l.limiters, k)
		}
	}
	return nil
}

type redisNudgeLimiter struct {
	client   *redis.Client
	interval time.Duration
}

// NewNudgeLimiter shares the per-pair window across processes through Redis.
func NewNudgeLimiter(client *redis.Client, interval time.Duration) NudgeLimiter {
	return &redisNudgeLimiter{client: client, interval: interval}
}

func (l *redisNudgeLimiter) Allow(ctx context.Context, code, fromID, toID string) (bool, error) {
	return l.client.SetNX(ctx, pairKey(code, fromID, toID), 1, l.interval).Result()
}

// Forget is a no-op for Redis; pair keys expire on their own within one
// interval.
func (l *redisNudgeLimiter) Forget(context.Context, string) error {
	return nil
}
