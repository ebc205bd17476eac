package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
)

var deleteIfScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KV keeps pending orders in Redis. A zero ttl keeps a slot until it is cleared; a positive
// ttl lets abandoned slots expire on their own.
type KV struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewKV(client *goredis.Client, ttl time.Duration) pendingorder.KV {
	return &KV{client: client, ttl: ttl}
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

func (r *KV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *KV) DeleteIf(ctx context.Context, key string, expected []byte) (bool, error) {
	n, err := deleteIfScript.Run(ctx, r.client, []string{key}, expected).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
