// Package ratelimit enforces per-platform daily crawl budgets on a shared
// Redis counter, so the cap holds across every crawler process.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hooklab-media/hooklab-backend/internal/platform/logger"
)

const dailyTTL = 24 * time.Hour

// Limiter counts crawl fetches per platform per UTC day.
type Limiter struct {
	rdb *redis.Client
	log *logger.Logger
	now func() time.Time
}

func New(rdb *redis.Client, baseLog *logger.Logger) *Limiter {
	return &Limiter{
		rdb: rdb,
		log: baseLog.With("component", "ratelimit"),
		now: time.Now,
	}
}

func (l *Limiter) key(platform string) string {
	return fmt.Sprintf("crawl:%s:%s", platform, l.now().UTC().Format("20060102"))
}

// Allow increments the platform's daily counter and reports whether this
// call is still inside the limit. The TTL is set on the first increment of
// the day. With no Redis configured the limiter is permissive; a crawl
// burst is cheaper than a stalled pipeline.
func (l *Limiter) Allow(ctx context.Context, platform string, limit int64) (bool, error) {
	if l.rdb == nil {
		return true, nil
	}
	key := l.key(platform)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("rate limit incr failed, allowing", "platform", platform, "error", err)
		return true, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, dailyTTL).Err(); err != nil {
			l.log.Warn("rate limit expire failed", "platform", platform, "error", err)
		}
	}
	return count <= limit, nil
}

// Remaining reports how much of the day's budget is left.
func (l *Limiter) Remaining(ctx context.Context, platform string, limit int64) (int64, error) {
	if l.rdb == nil {
		return limit, nil
	}
	count, err := l.rdb.Get(ctx, l.key(platform)).Int64()
	if err == redis.Nil {
		return limit, nil
	}
	if err != nil {
		return 0, err
	}
	if count >= limit {
		return 0, nil
	}
	return limit - count, nil
}
