package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/niksmo/product-explorer/internal/core/port"
	"github.com/niksmo/product-explorer/pkg/retry"
	"github.com/redis/go-redis/v9"
)

var _ port.KeyValueStore = (*RedisStore)(nil)

type RedisStore struct {
	cl     *redis.Client
	prefix string
}

// NewRedisStore connects to addr and waits for the server to answer a
// ping. Keys are stored under prefix.
func NewRedisStore(
	ctx context.Context, addr, prefix string,
) (*RedisStore, error) {
	const op = "NewRedisStore"
	log := slog.With("op", op)

	cl := redis.NewClient(&redis.Options{Addr: addr})

	retryCfg := retry.RetryConfig{
		MaxAttempts: 5,
		Backoff:     retry.ConstantBackoff(500 * time.Millisecond),
	}
	err := retry.Do(ctx, retryCfg, func() error {
		return cl.Ping(ctx).Err()
	})
	if err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("%s: redis is unavailable: %w", op, err)
	}

	log.Info("redis is available", "addr", addr)
	return NewRedisStoreFromClient(cl, prefix), nil
}

func NewRedisStoreFromClient(cl *redis.Client, prefix string) *RedisStore {
	return &RedisStore{cl: cl, prefix: prefix}
}

func (s *RedisStore) Get(
	ctx context.Context, key string,
) ([]byte, bool, error) {
	const op = "RedisStore.Get"

	v, err := s.cl.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	const op = "RedisStore.Set"

	if err := s.cl.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	const op = "RedisStore.Delete"

	if err := s.cl.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Close() {
	const op = "RedisStore.Close"
	log := slog.With("op", op)

	log.Info("closing redis client...")
	if err := s.cl.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("redis client is closed")
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}
