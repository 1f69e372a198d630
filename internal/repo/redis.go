package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// Claim marks key as taken for ttl. It reports false when someone already holds it.
func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.C.SetNX(ctx, key, 1, ttl).Result()
}

// Release drops a claim so the work can be retried.
func (r *Redis) Release(ctx context.Context, key string) error {
	return r.C.Del(ctx, key).Err()
}
