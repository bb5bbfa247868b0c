package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTooSoon = errors.New("please wait before requesting another code")
	ErrLimited = errors.New("too many code requests; try again later")
)

// Limiter throttles code issuance per identifier+purpose: a fixed
// cooldown between consecutive requests plus a cap inside a sliding
// window. State lives in Redis with TTLs, nothing to clean up.
type Limiter struct {
	rdb         *redis.Client
	cooldown    time.Duration
	window      time.Duration
	maxInWindow int
}

func NewLimiter(rdb *redis.Client, cooldown, window time.Duration, maxInWindow int) *Limiter {
	return &Limiter{rdb: rdb, cooldown: cooldown, window: window, maxInWindow: maxInWindow}
}

func (l *Limiter) Allow(ctx context.Context, identifier, purpose string) error {
	lastKey := fmt.Sprintf("otp:last:%s:%s", identifier, purpose)
	countKey := fmt.Sprintf("otp:count:%s:%s", identifier, purpose)

	if ttl, err := l.rdb.TTL(ctx, lastKey).Result(); err == nil && ttl > 0 {
		return ErrTooSoon
	}

	cnt, err := l.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.rdb.Expire(ctx, countKey, l.window)
	}
	if int(cnt) > l.maxInWindow {
		return ErrLimited
	}

	l.rdb.Set(ctx, lastKey, "1", l.cooldown)
	return nil
}
