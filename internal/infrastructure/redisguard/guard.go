package redisguard

import (
	"context"
	"time"

	apppayment "github.com/Zhima-Mochi/minishop-inventory/internal/application/payment"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "webhook:inflight:"
	DefaultTTL = 30 * time.Second
)

// releaseScript deletes the key only while it still carries our token, so a delivery
// whose lock expired cannot free a lock taken by the next one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// Guard is a SETNX lock per webhook event id. The TTL bounds how long a crashed
// delivery can block retries.
type Guard struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

var _ apppayment.InflightGuard = (*Guard)(nil)

func New(rdb redis.UniversalClient, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

func (g *Guard) Acquire(ctx context.Context, eventID string) (func(context.Context), bool, error) {
	key := keyPrefix + eventID
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func(ctx context.Context) {
		_ = releaseScript.Run(ctx, g.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}
