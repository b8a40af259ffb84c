package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds optimistic retries when another writer touched the
// key between WATCH and EXEC. Connection errors are returned immediately.
const maxTxAttempts = 8

var ErrConflict = errors.New("store: too many concurrent updates")

// RedisBackend keeps each namespace as one string key holding the JSON array.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, keyPrefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: keyPrefix}
}

// DialRedis connects and pings, failing fast on a bad address.
func DialRedis(ctx context.Context, addr, password string, dbIndex int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (r *RedisBackend) key(namespace string) string { return r.prefix + namespace }

func (r *RedisBackend) Load(ctx context.Context, namespace string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (r *RedisBackend) Update(ctx context.Context, namespace string, fn func([]byte) ([]byte, error)) error {
	key := r.key(namespace)
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		var fnErr error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				cur = nil
			} else if err != nil {
				return err
			}
			next, err := fn(cur)
			if err != nil {
				fnErr = err
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, next, 0)
				return nil
			})
			return err
		}, key)
		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}
